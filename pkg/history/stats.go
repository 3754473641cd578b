package history

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RecentCount is how many entries the dashboard shows.
const RecentCount = 3

// Stats is the dashboard summary.
type Stats struct {
	TotalPodcasts     int     `json:"total_podcasts"`
	TotalMinutes      float64 `json:"total_minutes"`
	FormattedDuration string  `json:"formatted_duration"`
	LastCreationDate  string  `json:"last_creation_date"`
	Recent            []Entry `json:"recent_podcasts"`
}

// Summarize computes dashboard stats over entries, which are newest first.
func Summarize(entries []Entry) Stats {
	st := Stats{
		TotalPodcasts:    len(entries),
		LastCreationDate: "Never",
		Recent:           entries[:min(RecentCount, len(entries))],
	}
	for _, e := range entries {
		if m, ok := minutes(e.Duration); ok {
			st.TotalMinutes += m
		}
	}
	st.FormattedDuration = FormatMinutes(st.TotalMinutes)
	if len(entries) > 0 {
		st.LastCreationDate = formatDate(entries[0].CreationDate)
	}
	return st
}

// FormatMinutes renders a minute total as "Xh Ym" or "Ym".
func FormatMinutes(total float64) string {
	if total <= 0 {
		return "0m"
	}
	hours := math.Floor(total / 60)
	rest := math.RoundToEven(total - hours*60)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", int(hours), int(rest))
	}
	return fmt.Sprintf("%dm", int(rest))
}

// minutes accepts plain non-negative decimals like "5" or "2.5".
func minutes(s string) (float64, bool) {
	if s == "" || strings.Count(s, ".") > 1 {
		return 0, false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func formatDate(s string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("Jan 02, 2006")
		}
	}
	return s
}
