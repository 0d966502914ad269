package providers

import "time"

const day = 24 * time.Hour

// DayHistogram buckets visits by whole days before now: element i counts the
// visits made i days ago. The slice ends at the oldest visit, so it is empty
// only when visits is. Visits later than now count as today.
func DayHistogram(visits []time.Time, now time.Time) []int {
	if len(visits) == 0 {
		return []int{}
	}

	days := make([]int, len(visits))
	maxDay := 0
	for i, t := range visits {
		d := 0
		if elapsed := now.Sub(t); elapsed > 0 {
			d = int(elapsed / day)
		}
		days[i] = d
		maxDay = max(maxDay, d)
	}

	hist := make([]int, maxDay+1)
	for _, d := range days {
		hist[d]++
	}
	return hist
}
