// Package telemetry collects congestion-window-over-time samples emitted by a
// sender. The sender reports a sample on every window mutation; what happens
// to the samples (persistence, rendering) is up to the sink.
package telemetry

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack"
)

// Sink receives one sample per congestion-window mutation.
type Sink interface {
	Record(elapsed time.Duration, cwnd float64)
}

// Nop discards all samples.
type Nop struct{}

func (Nop) Record(time.Duration, float64) {}

// Sample is one recorded congestion-window data point.
type Sample struct {
	SessionID      uuid.UUID
	ElapsedSeconds float64
	Cwnd           float64
}

// Recorder appends msgpack-encoded samples to a file. Each recorder stamps
// its samples with a fresh session id so recordings of several runs can be
// told apart in one file.
type Recorder struct {
	mutex   sync.Mutex
	file    *os.File
	encoder *msgpack.Encoder
	session uuid.UUID
}

// NewRecorder opens (or creates) the recording file in append mode.
func NewRecorder(path string) (*Recorder, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		file:    file,
		encoder: msgpack.NewEncoder(file),
		session: uuid.New(),
	}, nil
}

// Session returns the id stamped on this recorder's samples.
func (r *Recorder) Session() uuid.UUID {
	return r.session
}

func (r *Recorder) Record(elapsed time.Duration, cwnd float64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	sample := Sample{
		SessionID:      r.session,
		ElapsedSeconds: elapsed.Seconds(),
		Cwnd:           cwnd,
	}
	if err := r.encoder.Encode(sample); err != nil {
		log.Printf("telemetry: error recording sample: %s\n", err)
	}
}

func (r *Recorder) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.file.Close()
}

// ExportCSV decodes a stream of recorded samples and writes them as CSV rows
// (session, elapsed_seconds, cwnd) for plotting.
func ExportCSV(in io.Reader, out io.Writer) error {
	decoder := msgpack.NewDecoder(in)
	writer := csv.NewWriter(out)
	if err := writer.Write([]string{"session", "elapsed_seconds", "cwnd"}); err != nil {
		return err
	}
	for {
		var sample Sample
		err := decoder.Decode(&sample)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		record := []string{
			sample.SessionID.String(),
			strconv.FormatFloat(sample.ElapsedSeconds, 'f', 6, 64),
			strconv.FormatFloat(sample.Cwnd, 'f', 6, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
