package swp

import (
	"sync"
	"testing"
	"time"
)

// fakeLink is a scriptable in-memory link: frames sent by the code under test
// land in out, and tests inject inbound frames through in.
type fakeLink struct {
	transmit    time.Duration
	propagation time.Duration

	out chan []byte
	in  chan []byte

	mutex sync.Mutex
	down  bool
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		// Generous delays keep the seeded retransmission timeout well above
		// test scheduling noise.
		transmit:    100 * time.Millisecond,
		propagation: 100 * time.Millisecond,
		out:         make(chan []byte, 1024),
		in:          make(chan []byte, 1024),
	}
}

// recordingSink captures telemetry samples for assertions.
type recordingSink struct {
	mutex   sync.Mutex
	elapsed []time.Duration
	cwnds   []float64
}

func (r *recordingSink) Record(elapsed time.Duration, cwnd float64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.elapsed = append(r.elapsed, elapsed)
	r.cwnds = append(r.cwnds, cwnd)
}

func (r *recordingSink) samples() []float64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]float64(nil), r.cwnds...)
}

func (f *fakeLink) Send(raw []byte) error {
	frame := make([]byte, len(raw))
	copy(frame, raw)
	f.out <- frame
	return nil
}

func (f *fakeLink) Recv() ([]byte, error) {
	select {
	case raw := <-f.in:
		return raw, nil
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	}
}

func (f *fakeLink) Shutdown() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.down = true
	return nil
}

func (f *fakeLink) isDown() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.down
}

func (f *fakeLink) TransmitDelay() time.Duration    { return f.transmit }
func (f *fakeLink) PropagationDelay() time.Duration { return f.propagation }

// expectFrame waits for the next frame sent on the link and decodes it.
func expectFrame(t *testing.T, l *fakeLink) Packet {
	t.Helper()
	select {
	case raw := <-l.out:
		packet, err := Unmarshal(raw)
		if err != nil {
			t.Fatalf("undecodable frame on link: %v", err)
		}
		return packet
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame on link")
		return Packet{}
	}
}

// expectPacket waits for the next frame and asserts kind and sequence.
func expectPacket(t *testing.T, l *fakeLink, kind Kind, seq uint32) Packet {
	t.Helper()
	packet := expectFrame(t, l)
	if packet.Kind != kind || packet.Seq != seq {
		t.Fatalf("expected %s, got %s", Packet{Kind: kind, Seq: seq}, packet)
	}
	return packet
}

// injectAck feeds an ACK for seq to the code under test.
func injectAck(l *fakeLink, seq uint32) {
	l.in <- Packet{Kind: Ack, Seq: seq}.Marshal()
}

// senderState reads the sender's counters under its own lock.
func senderState(s *Sender) (lastAckRecv, lastSeqSent, lastSeqWritten int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.lastAckRecv, s.lastSeqSent, s.lastSeqWritten
}

// awaitFullyAcked polls until the sender has no outstanding data.
func awaitFullyAcked(t *testing.T, s *Sender) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ack, sent, written := senderState(s)
		if ack == sent && sent == written {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	ack, sent, written := senderState(s)
	t.Fatalf("sender not fully acked: lastAckRecv=%d lastSeqSent=%d lastSeqWritten=%d", ack, sent, written)
}
