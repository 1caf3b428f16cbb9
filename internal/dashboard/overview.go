// AngelaMos | 2026
// overview.go

package dashboard

import (
	"strconv"
	"strings"
	"time"

	"github.com/edig/bibliotheque/internal/activity"
	"github.com/edig/bibliotheque/internal/auth"
	"github.com/edig/bibliotheque/internal/catalog"
)

const notAvailable = "N/A"

type Overview struct {
	TotalManuals     int                  `json:"total_manuals"`
	LevelCounts      []catalog.LevelCount `json:"level_counts"`
	AverageAddition  string               `json:"average_time_between_additions"`
	SigninActivity   []auth.DayCount      `json:"signin_activity"`
	ManualsEvolution []catalog.DayCount   `json:"manuals_evolution"`
	RecentManuals    []catalog.Manual     `json:"recent_manuals"`
	LastAdded        *catalog.Manual      `json:"last_added"`
	Activity         []activity.Entry     `json:"activity"`
	GeneratedAt      time.Time            `json:"generated_at"`
}

// AverageBetween is the mean gap between consecutive creation times,
// which must be sorted oldest first. ok is false under two times.
func AverageBetween(times []time.Time) (avg time.Duration, ok bool) {
	if len(times) < 2 {
		return 0, false
	}
	var total time.Duration
	for i := 1; i < len(times); i++ {
		total += times[i].Sub(times[i-1])
	}
	return total / time.Duration(len(times)-1), true
}

// FormatAverage renders d as "3j 4h 5m 6s", leaving out zero parts.
// Seconds are always shown when nothing else is.
func FormatAverage(d time.Duration, ok bool) string {
	if !ok {
		return notAvailable
	}
	if d < 0 {
		d = -d
	}

	secs := int64(d / time.Second)
	parts := []struct {
		n      int64
		suffix string
	}{
		{secs / 86400, "j"},
		{secs % 86400 / 3600, "h"},
		{secs % 3600 / 60, "m"},
	}

	var out []string
	for _, p := range parts {
		if p.n > 0 {
			out = append(out, strconv.FormatInt(p.n, 10)+p.suffix)
		}
	}
	if s := secs % 60; s > 0 || len(out) == 0 {
		out = append(out, strconv.FormatInt(s, 10)+"s")
	}
	return strings.Join(out, " ")
}

func toCreated(items []catalog.Manual) []activity.Created {
	out := make([]activity.Created, 0, len(items))
	for _, m := range items {
		out = append(out, activity.Created{Title: m.Title, CreatedAt: m.CreatedAt})
	}
	return out
}
