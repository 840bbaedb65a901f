package swp

import (
	"log"
	"sync"
	"time"

	"github.com/mubashir494/swp/internal/link"
	"github.com/mubashir494/swp/internal/swp/rtt"
	"github.com/mubashir494/swp/internal/telemetry"
)

// DefaultBufferSize is the default capacity of the send buffer in slots. It
// bounds outstanding plus queued data; Send blocks once it is exhausted.
const DefaultBufferSize = 5000

// SenderOptions configures a sender.
type SenderOptions struct {
	Policy     PolicyConfig
	BufferSize int
	Telemetry  telemetry.Sink
}

func NewDefaultSenderOptions() SenderOptions {
	return SenderOptions{
		Policy:     PolicyConfig{SlowStart: true, InitialThreshold: 50},
		BufferSize: DefaultBufferSize,
		Telemetry:  telemetry.Nop{},
	}
}

// sendSlot tracks one buffered packet. A zero sentAt means the packet was
// never transmitted; retransmitted marks packets whose round trip must not be
// folded into the RTT estimate.
type sendSlot struct {
	packet        Packet
	sentAt        time.Time
	retransmitted bool
}

// Sender is the sending endpoint of an SWP stream. All protocol state is
// guarded by one mutex shared by the application path (Send), the background
// ACK loop and the retransmission timer callback, so loss recovery and ACK
// processing never interleave.
type Sender struct {
	link  link.Link
	sink  telemetry.Sink
	stats *rtt.Stats
	start time.Time

	mutex     sync.Mutex
	slotFreed *sync.Cond

	buf      []*sendSlot
	occupied int

	lastAckRecv    int64
	lastSeqSent    int64
	lastSeqWritten int64

	cc *congestion

	timer    *time.Timer
	timerGen uint64

	shutdown bool
	done     chan struct{}
}

// NewSender creates a sender on the given link, seeds the RTT estimate from
// the link's fixed delays, transmits the opening Syn at sequence 0 and starts
// the background ACK loop.
func NewSender(l link.Link, options SenderOptions) *Sender {
	if options.BufferSize <= 0 {
		options.BufferSize = DefaultBufferSize
	}
	if options.Telemetry == nil {
		options.Telemetry = telemetry.Nop{}
	}
	s := &Sender{
		link:        l,
		sink:        options.Telemetry,
		stats:       rtt.New(2 * (l.TransmitDelay() + l.PropagationDelay())),
		start:       time.Now(),
		buf:         make([]*sendSlot, options.BufferSize),
		lastAckRecv: -1,
		lastSeqSent: -1,
		cc:          newCongestion(options.Policy),
		done:        make(chan struct{}),
	}
	s.slotFreed = sync.NewCond(&s.mutex)

	s.mutex.Lock()
	s.occupied = 1
	s.buf[0] = &sendSlot{packet: Packet{Kind: Syn, Seq: 0}}
	s.transmitLocked(0)
	s.mutex.Unlock()

	go s.ackLoop()
	return s
}

// Send splits data into segments of at most MaxPayload bytes and enqueues
// them in order. It blocks while the send buffer is full.
func (s *Sender) Send(data []byte) {
	for len(data) > 0 {
		n := len(data)
		if n > MaxPayload {
			n = MaxPayload
		}
		s.enqueue(data[:n])
		data = data[n:]
	}
}

func (s *Sender) enqueue(chunk []byte) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for s.occupied == len(s.buf) {
		s.slotFreed.Wait()
	}
	s.occupied++

	s.lastSeqWritten++
	seq := s.lastSeqWritten
	payload := make([]byte, len(chunk))
	copy(payload, chunk)
	s.buf[seq%int64(len(s.buf))] = &sendSlot{
		packet: Packet{Kind: Data, Seq: uint32(seq), Data: payload},
	}

	if s.lastSeqSent-s.lastAckRecv < s.cc.window() {
		s.transmitLocked(seq)
	}
}

// transmitLocked sends the buffered packet for seq and re-arms the single
// retransmission timer. The caller holds the mutex.
func (s *Sender) transmitLocked(seq int64) {
	slot := s.buf[seq%int64(len(s.buf))]
	if slot == nil {
		return
	}
	if err := s.link.Send(slot.packet.Marshal()); err != nil {
		log.Printf("sender: error sending %s: %s\n", slot.packet, err)
	}

	if s.lastSeqSent < seq {
		s.lastSeqSent = seq
	}

	if slot.sentAt.IsZero() && !slot.retransmitted {
		log.Printf("sender: transmit %s\n", slot.packet)
		slot.sentAt = time.Now()
	} else {
		log.Printf("sender: retransmit %s\n", slot.packet)
		slot.retransmitted = true
	}

	s.armTimerLocked()
}

// armTimerLocked (re)starts the retransmission timer at twice the smoothed
// RTT, cancelling any previously armed timer. The generation counter voids
// callbacks of timers that already fired but have not run yet.
func (s *Sender) armTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerGen++
	gen := s.timerGen
	s.timer = time.AfterFunc(s.stats.Timeout(), func() { s.onTimeout(gen) })
}

func (s *Sender) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

// onTimeout is the loss-recovery path. Everything in flight is presumed lost:
// the congestion policy shrinks the window, all outstanding slots become
// ineligible for RTT sampling, and the oldest unacknowledged packet is
// retransmitted immediately.
func (s *Sender) onTimeout(gen uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if gen != s.timerGen {
		// A newer transmit or a cancellation superseded this timer.
		return
	}
	if s.lastAckRecv >= s.lastSeqSent {
		return
	}

	s.cc.onTimeout()
	log.Printf("sender: timeout, cwnd %.3f\n", s.cc.cwnd)
	s.reportLocked()

	for seq := s.lastAckRecv + 1; seq <= s.lastSeqSent; seq++ {
		if slot := s.buf[seq%int64(len(s.buf))]; slot != nil {
			slot.retransmitted = true
		}
	}
	s.lastSeqSent = s.lastAckRecv

	s.transmitLocked(s.lastAckRecv + 1)
}

// ackLoop receives acknowledgments until shutdown is requested and all data
// is acknowledged, then releases the link.
func (s *Sender) ackLoop() {
	for {
		s.mutex.Lock()
		if s.shutdown && s.lastAckRecv >= s.lastSeqSent {
			s.mutex.Unlock()
			break
		}
		s.mutex.Unlock()

		raw, err := s.link.Recv()
		if err != nil {
			log.Printf("sender: link receive failed: %s\n", err)
			break
		}
		if raw == nil {
			continue
		}
		packet, err := Unmarshal(raw)
		if err != nil {
			continue
		}
		if packet.Kind != Ack {
			continue
		}
		s.handleAck(int64(packet.Seq), time.Now())
	}
	if err := s.link.Shutdown(); err != nil {
		log.Printf("sender: error shutting down link: %s\n", err)
	}
	close(s.done)
}

func (s *Sender) handleAck(seq int64, recvTime time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if seq <= s.lastAckRecv {
		// Stale or duplicate ACK. It still feeds the duplicate-run
		// tracker, which may trigger a fast retransmission, but it never
		// advances the window.
		retransmit, changed := s.cc.onAck(seq, true)
		if changed {
			s.reportLocked()
		}
		if retransmit > s.lastAckRecv && retransmit <= s.lastSeqWritten {
			s.transmitLocked(retransmit)
		}
		return
	}

	// Advance one sequence at a time, folding RTT samples from slots whose
	// most recent transmission was not a retransmission, and freeing each
	// acknowledged slot.
	for s.lastAckRecv < seq {
		s.lastAckRecv++
		i := s.lastAckRecv % int64(len(s.buf))
		if slot := s.buf[i]; slot != nil {
			if !slot.sentAt.IsZero() && !slot.retransmitted {
				s.stats.Update(recvTime.Sub(slot.sentAt))
			}
			s.buf[i] = nil
		}
		s.occupied--
		s.slotFreed.Signal()
	}

	// An ACK can outrun lastSeqSent after a timeout reset.
	if s.lastSeqSent < s.lastAckRecv {
		s.lastSeqSent = s.lastAckRecv
	}

	if s.lastAckRecv == s.lastSeqSent {
		s.cancelTimerLocked()
	}

	retransmit, changed := s.cc.onAck(seq, false)
	if changed {
		s.reportLocked()
	}
	if retransmit > s.lastAckRecv && retransmit <= s.lastSeqWritten {
		s.transmitLocked(retransmit)
	}

	// Drain: transmit buffered data while the window allows.
	for s.lastSeqSent < s.lastSeqWritten && s.lastSeqSent-s.lastAckRecv < s.cc.window() {
		s.transmitLocked(s.lastSeqSent + 1)
	}
}

func (s *Sender) reportLocked() {
	s.sink.Record(time.Since(s.start), s.cc.cwnd)
}

// Close requests shutdown and blocks until all outstanding data has been
// acknowledged and the background loop has released the link.
func (s *Sender) Close() error {
	s.mutex.Lock()
	s.shutdown = true
	s.mutex.Unlock()
	<-s.done
	return nil
}
