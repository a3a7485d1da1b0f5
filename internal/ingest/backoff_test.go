package ingest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_Ceiling(t *testing.T) {
	b := DefaultBackoff()

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{-1, time.Second},
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{6, 30 * time.Second},
		{1000, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := b.Ceiling(tt.retry); got != tt.want {
			t.Errorf("Ceiling(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestBackoff_DelayWithinJitterBounds(t *testing.T) {
	b := DefaultBackoff()

	var prevLow time.Duration
	for retry := 0; retry < 12; retry++ {
		low := b.Ceiling(retry)
		high := low + time.Duration(float64(low)*b.Jitter)

		for i := 0; i < 200; i++ {
			d := b.Delay(retry)
			if d < low || d > high {
				t.Fatalf("Delay(%d) = %v, want within [%v, %v]", retry, d, low, high)
			}
		}

		assert.GreaterOrEqual(t, low, prevLow, "lower bound must not shrink")
		assert.LessOrEqual(t, high, 36*time.Second)
		prevLow = low
	}
}

func TestBackoff_JitterExtremes(t *testing.T) {
	b := DefaultBackoff()

	b.rand = func() float64 { return 0 }
	assert.Equal(t, 4*time.Second, b.Delay(2))

	b.rand = func() float64 { return 0.999999 }
	assert.InDelta(t, float64(4800*time.Millisecond), float64(b.Delay(2)), float64(time.Millisecond))
}

func TestBackoff_Validate(t *testing.T) {
	assert.NoError(t, DefaultBackoff().Validate())
	assert.Error(t, Backoff{Base: 0, Max: time.Second}.Validate())
	assert.Error(t, Backoff{Base: 2 * time.Second, Max: time.Second}.Validate())
	assert.Error(t, Backoff{Base: time.Second, Max: time.Second, Jitter: 1.5}.Validate())
	assert.Error(t, Backoff{Base: time.Second, Max: time.Second, Jitter: math.NaN()}.Validate())
}
