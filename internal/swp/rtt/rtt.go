// Package rtt holds the sender's smoothed round-trip-time estimate.
package rtt

import "time"

const (
	// weight is the EWMA weight of a new sample: new = 0.9*old + 0.1*sample.
	weight = 0.1

	// timeoutFactor scales the smoothed RTT into the retransmission deadline.
	timeoutFactor = 2
)

// Stats is the smoothed RTT estimator. It must only be fed genuine samples,
// i.e. round trips of segments whose most recent transmission was not a
// retransmission, so the estimate does not feed back into itself.
type Stats struct {
	srtt float64 // nanoseconds
}

// New seeds the estimator, typically with 2*(transmit delay + propagation delay).
func New(seed time.Duration) *Stats {
	return &Stats{srtt: float64(seed)}
}

// Update folds a new round-trip sample into the smoothed estimate.
func (s *Stats) Update(sample time.Duration) {
	s.srtt = (1-weight)*s.srtt + weight*float64(sample)
}

// SRTT returns the current smoothed round-trip time.
func (s *Stats) SRTT() time.Duration {
	return time.Duration(s.srtt)
}

// Timeout returns the retransmission deadline derived from the estimate.
func (s *Stats) Timeout() time.Duration {
	return time.Duration(timeoutFactor * s.srtt)
}
