package clock_test

import (
	"testing"
	"time"

	"github.com/jsamuelsen11/trackflow/internal/platform/clock"
)

func TestFake(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.Fake(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	c.Advance(90 * time.Second)
	if got, want := c.Now(), start.Add(90*time.Second); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}

	later := start.Add(48 * time.Hour)
	c.Set(later)
	if got := c.Now(); !got.Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", got, later)
	}
}

func TestReal_IsUTC(t *testing.T) {
	t.Parallel()

	if loc := clock.Real().Now().Location(); loc != time.UTC {
		t.Errorf("Real().Now().Location() = %v, want UTC", loc)
	}
}
