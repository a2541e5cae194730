// Package backoff computes jittered exponential delays. It is shared by the
// outbound HTTP client and the optimistic-concurrency retry loop.
package backoff

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"time"
)

// JitterFraction is the maximum jitter as a fraction of the delay (±25%).
const JitterFraction = 0.25

// Policy describes an exponential backoff schedule.
type Policy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Delay returns the jittered delay before retry number attempt (1 is the
// first retry). The un-jittered delay is capped at Max when Max is set.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}

	delay := float64(p.Initial) * math.Pow(mult, float64(attempt-1))
	if p.Max > 0 && delay > float64(p.Max) {
		delay = float64(p.Max)
	}

	jitter := delay * JitterFraction
	delay += jitter * (2*randFloat64() - 1)

	return time.Duration(max(delay, 0))
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

const (
	significandBits = 53
	uint64Bits      = 64
)

// randFloat64 returns a random float64 in [0, 1) from crypto/rand.
func randFloat64() float64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0.5
	}
	return float64(binary.BigEndian.Uint64(b[:])>>(uint64Bits-significandBits)) / float64(uint64(1)<<significandBits)
}
