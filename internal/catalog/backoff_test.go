package catalog

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDelayBounds(t *testing.T) {
	t.Parallel()

	unit := 50 * time.Millisecond
	p := NewBackoffPolicyWithSource(unit, rand.NewSource(42))

	for attempt := 0; attempt < 6; attempt++ {
		for i := 0; i < 100; i++ {
			d := p.Delay(attempt)
			floor := unit << uint(attempt)
			require.GreaterOrEqual(t, d, floor, "attempt %d draw %d", attempt, i)
			require.Less(t, d, floor+unit, "attempt %d draw %d", attempt, i)
		}
	}
}

func TestBackoffNegativeAttemptClamped(t *testing.T) {
	t.Parallel()

	unit := 10 * time.Millisecond
	p := NewBackoffPolicyWithSource(unit, rand.NewSource(1))

	d := p.Delay(-3)
	require.GreaterOrEqual(t, d, unit)
	require.Less(t, d, 2*unit)
}

func TestBackoffDefaultsUnitToOneSecond(t *testing.T) {
	t.Parallel()

	p := NewBackoffPolicyWithSource(0, rand.NewSource(7))
	d := p.Delay(0)
	require.GreaterOrEqual(t, d, time.Second)
	require.Less(t, d, 2*time.Second)
}
