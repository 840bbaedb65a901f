package swp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlowStartGrowth(testing *testing.T) {
	// GIVEN
	cc := newCongestion(PolicyConfig{SlowStart: true, InitialThreshold: 4})

	// WHEN below the threshold every accepted ACK adds a full segment
	for i := int64(0); i < 3; i++ {
		retransmit, changed := cc.onAck(i, false)
		assert.Equal(testing, int64(-1), retransmit)
		assert.True(testing, changed)
	}

	// THEN
	assert.Equal(testing, 4.0, cc.cwnd)

	// WHEN at or above the threshold growth turns additive
	_, _ = cc.onAck(3, false)

	// THEN
	assert.Equal(testing, 4.25, cc.cwnd)
}

func TestPlainGrowth(testing *testing.T) {
	// GIVEN
	cc := newCongestion(PolicyConfig{InitialThreshold: 50})

	// WHEN
	_, _ = cc.onAck(0, false)

	// THEN cwnd += 1/cwnd regardless of the threshold
	assert.Equal(testing, 2.0, cc.cwnd)

	_, _ = cc.onAck(1, false)
	assert.Equal(testing, 2.5, cc.cwnd)
}

func TestStaleAckNoGrowth(testing *testing.T) {
	// GIVEN
	cc := newCongestion(PolicyConfig{SlowStart: true, InitialThreshold: 50})

	// WHEN
	retransmit, changed := cc.onAck(0, true)

	// THEN
	assert.Equal(testing, int64(-1), retransmit)
	assert.False(testing, changed)
	assert.Equal(testing, 1.0, cc.cwnd)
}

func TestTimeoutSlowStart(testing *testing.T) {
	// GIVEN
	cc := newCongestion(PolicyConfig{SlowStart: true, InitialThreshold: 50})
	cc.cwnd = 8

	// WHEN
	cc.onTimeout()

	// THEN threshold takes half the window, the window collapses
	assert.Equal(testing, 4.0, cc.ssthresh)
	assert.Equal(testing, 1.0, cc.cwnd)
}

func TestTimeoutPlainHalves(testing *testing.T) {
	// GIVEN
	cc := newCongestion(PolicyConfig{InitialThreshold: 50})
	cc.cwnd = 8

	// WHEN
	cc.onTimeout()

	// THEN
	assert.Equal(testing, 4.0, cc.cwnd)
}

func TestTimeoutFloorsAtOne(testing *testing.T) {
	// GIVEN
	slow := newCongestion(PolicyConfig{SlowStart: true, InitialThreshold: 50})
	slow.cwnd = 1
	plain := newCongestion(PolicyConfig{InitialThreshold: 50})
	plain.cwnd = 1

	// WHEN
	slow.onTimeout()
	plain.onTimeout()

	// THEN
	assert.GreaterOrEqual(testing, slow.ssthresh, 1.0)
	assert.GreaterOrEqual(testing, slow.cwnd, 1.0)
	assert.GreaterOrEqual(testing, plain.cwnd, 1.0)
}

func TestTripleDuplicateTriggers(testing *testing.T) {
	// GIVEN
	cc := newCongestion(PolicyConfig{SlowStart: true, FastRetransmit: true, InitialThreshold: 8})
	cc.cwnd = 6

	// WHEN two identical ACKs arrive nothing triggers
	retransmit, _ := cc.onAck(4, false)
	assert.Equal(testing, int64(-1), retransmit)
	retransmit, changed := cc.onAck(4, true)
	assert.Equal(testing, int64(-1), retransmit)
	assert.False(testing, changed)

	// WHEN the third identical ACK arrives
	retransmit, changed = cc.onAck(4, true)

	// THEN the successor is retransmitted and window and threshold halve
	assert.Equal(testing, int64(5), retransmit)
	assert.True(testing, changed)
	assert.Equal(testing, 3.5, cc.cwnd) // 7/2: the first ACK grew 6 -> 7
	assert.Equal(testing, 4.0, cc.ssthresh)
	assert.Empty(testing, cc.run)
}

func TestFourthDuplicateDoesNotRetrigger(testing *testing.T) {
	// GIVEN a tracker cleared by a previous trigger
	cc := newCongestion(PolicyConfig{FastRetransmit: true, InitialThreshold: 50})
	_, _ = cc.onAck(4, true)
	_, _ = cc.onAck(4, true)
	retransmit, _ := cc.onAck(4, true)
	assert.Equal(testing, int64(5), retransmit)

	// WHEN a fourth identical duplicate arrives
	retransmit, changed := cc.onAck(4, true)

	// THEN it does not re-trigger until a fresh run of three builds up
	assert.Equal(testing, int64(-1), retransmit)
	assert.False(testing, changed)
	assert.Len(testing, cc.run, 1)
}

func TestTriggerKeepsOlderRunEntries(testing *testing.T) {
	// GIVEN a tracker with older, unrelated entries
	cc := newCongestion(PolicyConfig{FastRetransmit: true, InitialThreshold: 50})
	_, _ = cc.onAck(1, false)
	_, _ = cc.onAck(2, false)

	// WHEN a run of three duplicates triggers
	_, _ = cc.onAck(7, true)
	_, _ = cc.onAck(7, true)
	retransmit, _ := cc.onAck(7, true)

	// THEN only the triggering three entries are discarded
	assert.Equal(testing, int64(8), retransmit)
	assert.Equal(testing, []int64{1, 2}, cc.run)
}

func TestFastRetransmitFloors(testing *testing.T) {
	// GIVEN window and threshold already at the floor
	cc := newCongestion(PolicyConfig{FastRetransmit: true, InitialThreshold: 1})

	// WHEN a run triggers
	_, _ = cc.onAck(0, true)
	_, _ = cc.onAck(0, true)
	retransmit, _ := cc.onAck(0, true)

	// THEN both stay floored at one
	assert.Equal(testing, int64(1), retransmit)
	assert.Equal(testing, 1.0, cc.cwnd)
	assert.Equal(testing, 1.0, cc.ssthresh)
}

func TestWindowTruncatesTowardZero(testing *testing.T) {
	cc := newCongestion(PolicyConfig{InitialThreshold: 50})
	cc.cwnd = 3.9
	assert.Equal(testing, int64(3), cc.window())
}
