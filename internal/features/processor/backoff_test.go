package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	base := 5 * time.Second
	max := time.Minute

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, time.Minute},
		{50, time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.attempts, base, max), "attempts=%d", tt.attempts)
	}
}

func TestBackoff_BaseAboveMax(t *testing.T) {
	assert.Equal(t, time.Second, Backoff(1, 2*time.Second, time.Second))
}
