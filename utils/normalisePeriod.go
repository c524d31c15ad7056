package utils

import (
	"strings"

	"pawcademy/model"
)

// NormalizePeriod maps the period spellings seen from clients onto the
// canonical enum. Unknown values fall back to all_time.
func NormalizePeriod(period string) model.Period {

	period = strings.ToLower(strings.TrimSpace(period))

	periodMap := map[string]model.Period{

		"":         model.PeriodAllTime,
		"all":      model.PeriodAllTime,
		"alltime":  model.PeriodAllTime,
		"all_time": model.PeriodAllTime,
		"all-time": model.PeriodAllTime,
		"lifetime": model.PeriodAllTime,
		"overall":  model.PeriodAllTime,

		"week":      model.PeriodThisWeek,
		"weekly":    model.PeriodThisWeek,
		"thisweek":  model.PeriodThisWeek,
		"this_week": model.PeriodThisWeek,
		"this-week": model.PeriodThisWeek,

		"month":      model.PeriodThisMonth,
		"monthly":    model.PeriodThisMonth,
		"thismonth":  model.PeriodThisMonth,
		"this_month": model.PeriodThisMonth,
		"this-month": model.PeriodThisMonth,
	}

	if normalized, ok := periodMap[period]; ok {
		return normalized
	}

	return model.PeriodAllTime
}
