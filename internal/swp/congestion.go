package swp

import "math"

// PolicyConfig selects the congestion-control policy at construction time.
// Exactly one ACK policy is active: fast retransmit takes precedence over
// slow start, and with neither enabled the window grows additively on every
// ACK. SlowStart additionally selects the timeout recovery rule.
type PolicyConfig struct {
	SlowStart        bool
	FastRetransmit   bool
	InitialThreshold float64
}

type policyMode int

const (
	modePlain policyMode = iota
	modeSlowStart
	modeFastRetransmit
)

// congestion is the sender's congestion state. It is not safe for concurrent
// use; the sender serializes access under its own mutex.
type congestion struct {
	mode      policyMode
	slowStart bool

	cwnd     float64
	ssthresh float64

	// run is the duplicate-ACK tracker, the sequence numbers of recently
	// seen ACKs in arrival order. Only used in fast-retransmit mode.
	run []int64
}

func newCongestion(cfg PolicyConfig) *congestion {
	mode := modePlain
	switch {
	case cfg.FastRetransmit:
		mode = modeFastRetransmit
	case cfg.SlowStart:
		mode = modeSlowStart
	}
	threshold := cfg.InitialThreshold
	if threshold < 1 {
		threshold = 1
	}
	return &congestion{
		mode:      mode,
		slowStart: cfg.SlowStart,
		cwnd:      1,
		ssthresh:  threshold,
	}
}

// window is the admission limit on in-flight segments, cwnd truncated
// toward zero.
func (c *congestion) window() int64 {
	return int64(c.cwnd)
}

// onAck runs the active policy for an ACK carrying seq. stale marks ACKs that
// did not advance the cumulative ack point; they feed the duplicate tracker
// but never grow the window. It returns the sequence number to retransmit
// immediately (-1 for none) and whether cwnd changed.
func (c *congestion) onAck(seq int64, stale bool) (retransmit int64, changed bool) {
	if c.mode == modeFastRetransmit {
		c.run = append(c.run, seq)
		if c.tripleDuplicate(seq) {
			// Go back: halve window and threshold, no growth on the
			// triggering ACK. The triggering three entries are dropped
			// from the tracker, older entries are kept.
			c.cwnd = math.Max(1, c.cwnd/2)
			c.ssthresh = math.Max(1, c.ssthresh/2)
			c.run = c.run[:len(c.run)-3]
			return seq + 1, true
		}
	}
	if stale {
		return -1, false
	}
	switch c.mode {
	case modeFastRetransmit, modeSlowStart:
		if c.cwnd >= c.ssthresh {
			c.cwnd += 1 / c.cwnd
		} else {
			c.cwnd++
		}
	default:
		c.cwnd += 1 / c.cwnd
	}
	return -1, true
}

// tripleDuplicate reports whether the last three tracked ACKs all carry seq.
func (c *congestion) tripleDuplicate(seq int64) bool {
	n := len(c.run)
	return n >= 3 && c.run[n-1] == seq && c.run[n-2] == seq && c.run[n-3] == seq
}

// onTimeout applies the loss-recovery rule for an expired retransmission
// timer. With slow start the threshold takes half the window and the window
// collapses to one segment; otherwise the window is halved in place.
func (c *congestion) onTimeout() {
	if c.slowStart {
		c.ssthresh = math.Max(1, c.cwnd/2)
		c.cwnd = 1
	} else {
		c.cwnd = math.Max(1, c.cwnd/2)
	}
}
