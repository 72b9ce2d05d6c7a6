package memory

import "time"

// freshnessHalfLifeDays is the number of days after which a QA item's
// freshness score drops to 0.5. There is no configuration knob for
// this in the functional spec; the original implementation hard-codes
// it, and so does this one.
const freshnessHalfLifeDays = 30.0

// Freshness scores how recently updatedAt was touched, 1.0 for "just
// now" decaying toward 0 as the item ages. Future timestamps (clock
// skew) are treated as maximally fresh.
func Freshness(updatedAt time.Time) float32 {
	daysOld := time.Since(updatedAt).Hours() / 24
	if daysOld < 0 {
		return 1.0
	}
	return float32(1.0 / (1.0 + daysOld/freshnessHalfLifeDays))
}
