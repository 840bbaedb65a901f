package link

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// PipeOptions configures an in-process link pair.
type PipeOptions struct {
	// Loss is the probability in [0, 1) that a frame is dropped.
	Loss float64

	// Transmit and Propagation are the link's fixed delays. A nonzero total
	// delays each frame independently, which can reorder deliveries.
	Transmit    time.Duration
	Propagation time.Duration

	// ReadTimeout bounds how long Recv blocks before reporting an absent
	// read. Defaults to 50ms.
	ReadTimeout time.Duration

	// Seed seeds the loss generator; 0 means a time-based seed.
	Seed int64
}

// PipeEnd is one endpoint of an in-process lossy datagram pair, used by tests
// and benchmarks in place of a real socket.
type PipeEnd struct {
	options PipeOptions
	inbox   chan []byte
	peer    *PipeEnd

	rngMutex sync.Mutex
	rng      *rand.Rand

	closeOnce sync.Once
	closed    chan struct{}
}

// NewPipe creates a connected pair of lossy in-process links.
func NewPipe(options PipeOptions) (*PipeEnd, *PipeEnd) {
	if options.ReadTimeout == 0 {
		options.ReadTimeout = 50 * time.Millisecond
	}
	seed := options.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	a := newPipeEnd(options, seed)
	b := newPipeEnd(options, seed+1)
	a.peer, b.peer = b, a
	return a, b
}

func newPipeEnd(options PipeOptions, seed int64) *PipeEnd {
	return &PipeEnd{
		options: options,
		inbox:   make(chan []byte, 4096),
		rng:     rand.New(rand.NewSource(seed)),
		closed:  make(chan struct{}),
	}
}

func (p *PipeEnd) Send(raw []byte) error {
	select {
	case <-p.closed:
		return errors.New("link_closed")
	default:
	}
	if p.dropped() {
		return nil
	}
	frame := make([]byte, len(raw))
	copy(frame, raw)
	delay := p.options.Transmit + p.options.Propagation
	if delay == 0 {
		p.peer.deliver(frame)
		return nil
	}
	time.AfterFunc(delay, func() { p.peer.deliver(frame) })
	return nil
}

// deliver drops the frame when the peer's inbox is full; the link is lossy.
func (p *PipeEnd) deliver(frame []byte) {
	select {
	case p.inbox <- frame:
	default:
	}
}

func (p *PipeEnd) Recv() ([]byte, error) {
	select {
	case raw := <-p.inbox:
		return raw, nil
	case <-p.closed:
		return nil, errors.New("link_closed")
	case <-time.After(p.options.ReadTimeout):
		return nil, nil
	}
}

func (p *PipeEnd) Shutdown() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *PipeEnd) TransmitDelay() time.Duration    { return p.options.Transmit }
func (p *PipeEnd) PropagationDelay() time.Duration { return p.options.Propagation }

func (p *PipeEnd) dropped() bool {
	if p.options.Loss <= 0 {
		return false
	}
	p.rngMutex.Lock()
	defer p.rngMutex.Unlock()
	return p.rng.Float64() < p.options.Loss
}
