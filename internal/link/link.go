// Package link abstracts the unreliable, lossy, packet-oriented transport an
// SWP endpoint runs on. A link makes no delivery, ordering or integrity
// promises; reliability lives entirely in the swp package above it.
package link

import "time"

// Link is one endpoint of an unreliable datagram transport.
type Link interface {
	// Send transmits one frame. Loss is silent; an error means the
	// transport itself failed and the link is unusable.
	Send(raw []byte) error

	// Recv returns the next frame, or (nil, nil) when nothing is available
	// right now. Callers must tolerate absent reads as a no-op. An error
	// means the transport failed and the link is unusable.
	Recv() ([]byte, error)

	// Shutdown releases the link.
	Shutdown() error

	// TransmitDelay is the link's fixed serialization delay. Together with
	// PropagationDelay it seeds a sender's initial RTT estimate.
	TransmitDelay() time.Duration

	// PropagationDelay is the link's fixed one-way propagation delay.
	PropagationDelay() time.Duration
}
