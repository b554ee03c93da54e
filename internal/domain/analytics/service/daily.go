package service

import (
	"sort"
	"time"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
)

const dayFormat = "2006-01-02"

// AggregateByDay groups message stats by calendar day and returns the mean ER
// per day, ascending by date. The day is taken in the timezone the message
// timestamps are already expressed in. Messages nobody has read do not dilute
// a day's mean; a day where nothing was read reports 0. A trailing synthetic
// point one day past the last real date repeats the final value, so a chart's
// last segment keeps its direction.
//
// Callers pass top-level message stats only; thread replies have no day
// series of their own.
func AggregateByDay(stats []entity.MessageStat) []entity.DayStat {
	if len(stats) == 0 {
		return nil
	}

	type dayAcc struct {
		sum   float64
		count int
	}
	byDay := make(map[string]*dayAcc)
	for _, st := range stats {
		day := st.Date.Format(dayFormat)
		acc := byDay[day]
		if acc == nil {
			acc = &dayAcc{}
			byDay[day] = acc
		}
		if st.Readers > 0 {
			acc.sum += st.ER
			acc.count++
		}
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([]entity.DayStat, 0, len(days)+1)
	for _, day := range days {
		acc := byDay[day]
		er := 0.0
		if acc.count > 0 {
			er = acc.sum / float64(acc.count)
		}
		out = append(out, entity.DayStat{Date: day, ER: er})
	}

	last := out[len(out)-1]
	lastDate, _ := time.Parse(dayFormat, last.Date)
	out = append(out, entity.DayStat{
		Date: lastDate.AddDate(0, 0, 1).Format(dayFormat),
		ER:   last.ER,
	})

	return out
}
