package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyAt(t *testing.T) {
	sched, err := DailyAt(7, 30)
	require.NoError(t, err)

	from := time.Date(2025, 3, 10, 7, 29, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC), sched.Next(from))

	from = time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 11, 7, 30, 0, 0, time.UTC), sched.Next(from))

	// Interpreted in UTC regardless of the input location.
	tokyo := time.FixedZone("UTC+9", 9*3600)
	next := sched.Next(time.Date(2025, 3, 10, 12, 0, 0, 0, tokyo))
	assert.Equal(t, time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC), next.UTC())
}

func TestDailyAtRejectsInvalidTime(t *testing.T) {
	for _, hm := range [][2]int{{24, 0}, {-1, 0}, {0, 60}, {12, -5}} {
		_, err := DailyAt(hm[0], hm[1])
		assert.Error(t, err, "%02d:%02d", hm[0], hm[1])
	}
}

func TestEvery(t *testing.T) {
	from := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, from.Add(5*time.Minute), Every(5*time.Minute).Next(from))
	assert.Equal(t, from.Add(time.Minute), Every(0).Next(from))
}

func TestNextSlot(t *testing.T) {
	sched := Every(10 * time.Minute)
	due := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	grace := 5 * time.Minute

	tests := []struct {
		name     string
		now      time.Time
		wantRun  bool
		wantNext time.Time
	}{
		{"on time", due, true, due.Add(10 * time.Minute)},
		{"late within grace", due.Add(4 * time.Minute), true, due.Add(10 * time.Minute)},
		{"late exactly at grace", due.Add(grace), true, due.Add(10 * time.Minute)},
		{"late beyond grace", due.Add(7 * time.Minute), false, due.Add(17 * time.Minute)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			run, next := nextSlot(sched, due, tc.now, grace)
			assert.Equal(t, tc.wantRun, run)
			assert.Equal(t, tc.wantNext, next)
		})
	}
}

func TestNextSlotDailySkipsToTomorrow(t *testing.T) {
	sched, err := DailyAt(7, 0)
	require.NoError(t, err)
	due := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)

	run, next := nextSlot(sched, due, due.Add(11*time.Minute), 10*time.Minute)
	assert.False(t, run)
	assert.Equal(t, time.Date(2025, 3, 11, 7, 0, 0, 0, time.UTC), next)
}
