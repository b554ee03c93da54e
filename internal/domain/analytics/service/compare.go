package service

import "github.com/maksim/chatpulse/internal/domain/analytics/entity"

// Compare computes per-metric deltas between two periods. Every metric is
// compared in isolation. A zero previous value maps to +100% when the current
// value is positive and to 0% otherwise.
func Compare(current, previous entity.Metrics) (percentage, absolute map[string]float64) {
	cur := current.Fields()
	prev := previous.Fields()

	percentage = make(map[string]float64, len(cur))
	absolute = make(map[string]float64, len(cur))
	for name, c := range cur {
		p := prev[name]
		delta := c - p
		absolute[name] = delta
		switch {
		case p != 0:
			percentage[name] = delta / p * 100
		case c > 0:
			percentage[name] = 100
		default:
			percentage[name] = 0
		}
	}
	return percentage, absolute
}
