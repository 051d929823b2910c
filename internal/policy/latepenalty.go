// Package policy implements the late-penalty schedule applied to homework
// submissions.
package policy

import (
	"math"
	"time"
)

const (
	// decayFactor halves the awardable ceiling for each late day.
	decayFactor = 0.5
	// worthlessAfterDays is the cutoff past which a submission earns nothing.
	worthlessAfterDays = 7

	secondsPerDay = 86400
)

// Evaluate computes the maximum awardable points for a submission and how
// many days late it was. A nil deadline or an on-time submission incurs no
// penalty. Any fraction of a day late counts as a full day. The ceiling is
// floored and never negative.
func Evaluate(taskPoints int, deadline *time.Time, submittedAt time.Time) (maxPoints, daysLate int) {
	if deadline == nil || !submittedAt.After(*deadline) {
		return taskPoints, 0
	}

	secondsLate := submittedAt.Sub(*deadline).Seconds()
	daysLate = int(math.Ceil(secondsLate / secondsPerDay))
	if daysLate >= worthlessAfterDays {
		return 0, daysLate
	}

	penalized := int(float64(taskPoints) * math.Pow(decayFactor, float64(daysLate)))
	if penalized < 0 {
		penalized = 0
	}
	return penalized, daysLate
}
