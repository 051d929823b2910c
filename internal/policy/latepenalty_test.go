package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvaluateNoDeadline(t *testing.T) {
	maxPoints, daysLate := Evaluate(100, nil, time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC))
	require.Equal(t, 100, maxPoints)
	require.Equal(t, 0, daysLate)
}

func TestEvaluateSchedule(t *testing.T) {
	deadline := time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		points      int
		submittedAt time.Time
		wantMax     int
		wantDays    int
	}{
		{"exactly on deadline", 100, deadline, 100, 0},
		{"well before deadline", 100, deadline.Add(-48 * time.Hour), 100, 0},
		{"one second late counts as a day", 100, deadline.Add(time.Second), 50, 1},
		{"one full day late", 100, deadline.Add(24 * time.Hour), 50, 1},
		{"just over one day", 100, deadline.Add(24*time.Hour + time.Second), 25, 2},
		{"two days late", 100, deadline.Add(48 * time.Hour), 25, 2},
		{"three days late floors", 25, deadline.Add(49 * time.Hour), 3, 3},
		{"six days late", 100, deadline.Add(6 * 24 * time.Hour), 1, 6},
		{"seven days late is worthless", 100, deadline.Add(7 * 24 * time.Hour), 0, 7},
		{"ten days late is worthless", 100, deadline.Add(10 * 24 * time.Hour), 0, 10},
		{"zero point task stays zero", 0, deadline.Add(24 * time.Hour), 0, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			maxPoints, daysLate := Evaluate(tc.points, &deadline, tc.submittedAt)
			require.Equal(t, tc.wantMax, maxPoints)
			require.Equal(t, tc.wantDays, daysLate)
		})
	}
}
