package swp

import (
	"log"
	"sync"

	"gopkg.in/eapache/queue.v1"

	"github.com/mubashir494/swp/internal/link"
)

// DefaultWindowSize is the default capacity of the receiver's reordering
// window in slots.
const DefaultWindowSize = 1000

// ReceiverOptions configures a receiver.
type ReceiverOptions struct {
	WindowSize int
}

func NewDefaultReceiverOptions() ReceiverOptions {
	return ReceiverOptions{WindowSize: DefaultWindowSize}
}

// recvSlot holds a payload buffered out of order. A nil slot pointer marks an
// empty window position.
type recvSlot struct {
	payload []byte
}

// Receiver is the receiving endpoint of an SWP stream. It reorders incoming
// packets, delivers payloads to the consumer strictly in order and answers
// every received packet with one cumulative acknowledgment. Its background
// loop runs for the link's lifetime.
type Receiver struct {
	link link.Link

	mutex sync.Mutex
	ready *queue.Queue
	avail *sync.Cond

	lastAckSent int64
	maxSeqRecv  int64
	window      []*recvSlot
}

// NewReceiver creates a receiver on the given link and starts its background
// loop.
func NewReceiver(l link.Link, options ReceiverOptions) *Receiver {
	if options.WindowSize <= 0 {
		options.WindowSize = DefaultWindowSize
	}
	r := &Receiver{
		link:        l,
		ready:       queue.New(),
		lastAckSent: -1,
		maxSeqRecv:  -1,
		window:      make([]*recvSlot, options.WindowSize),
	}
	r.avail = sync.NewCond(&r.mutex)
	go r.loop()
	return r
}

// Recv blocks until the next in-order payload is available and returns it.
func (r *Receiver) Recv() []byte {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for r.ready.Length() == 0 {
		r.avail.Wait()
	}
	return r.ready.Remove().([]byte)
}

func (r *Receiver) loop() {
	for {
		raw, err := r.link.Recv()
		if err != nil {
			log.Printf("receiver: link receive failed: %s\n", err)
			return
		}
		if raw == nil {
			continue
		}
		packet, err := Unmarshal(raw)
		if err != nil {
			// Garbage on the wire is disregarded.
			continue
		}
		if packet.Kind == Ack {
			continue
		}
		r.handle(packet)
	}
}

func (r *Receiver) handle(packet Packet) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	seq := int64(packet.Seq)

	// Duplicate of something already delivered: the ACK must have been
	// lost, resend the current cumulative value.
	if seq <= r.lastAckSent {
		r.sendAckLocked()
		return
	}

	slot := &recvSlot{}
	if len(packet.Data) > 0 {
		slot.payload = packet.Data
	}
	r.window[seq%int64(len(r.window))] = slot
	if seq > r.maxSeqRecv {
		r.maxSeqRecv = seq
	}

	// Advance delivery over the contiguous prefix, stopping at the first
	// gap. The Syn's empty payload moves the ack point but is not handed
	// to the consumer.
	for r.lastAckSent < r.maxSeqRecv {
		next := (r.lastAckSent + 1) % int64(len(r.window))
		slot := r.window[next]
		if slot == nil {
			break
		}
		r.lastAckSent++
		if len(slot.payload) > 0 {
			r.ready.Add(slot.payload)
			r.avail.Signal()
		}
		r.window[next] = nil
	}

	r.sendAckLocked()
}

// sendAckLocked emits one cumulative acknowledgment for the highest sequence
// number below which everything has been delivered. The caller holds the
// mutex.
func (r *Receiver) sendAckLocked() {
	if r.lastAckSent < 0 {
		// Nothing contiguous received yet, there is no ack point to name.
		return
	}
	ack := Packet{Kind: Ack, Seq: uint32(r.lastAckSent)}
	if err := r.link.Send(ack.Marshal()); err != nil {
		log.Printf("receiver: error sending %s: %s\n", ack, err)
		return
	}
	log.Printf("receiver: sent %s\n", ack)
}
