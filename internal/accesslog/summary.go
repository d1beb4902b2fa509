package accesslog

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/zulandar/marquee/internal/models"
)

// ActorSummary aggregates the sessions of one actor.
type ActorSummary struct {
	ActorID            string `json:"actor_id"`
	ActorName          string `json:"actor_name"`
	TotalViews         int    `json:"total_views"`
	AvgDurationSeconds int    `json:"avg_duration"`
}

// Summarize groups sessions per actor. The average only counts sessions with
// a recorded, non-zero duration and is rounded to whole seconds. Actors are
// ordered by view count, ties keeping first-seen order.
func Summarize(logs []models.AccessLog, names map[string]string) []ActorSummary {
	type acc struct {
		total     int
		durations []int
	}
	byActor := make(map[string]*acc)
	var order []string
	for _, l := range logs {
		a, ok := byActor[l.ActorID]
		if !ok {
			a = &acc{}
			byActor[l.ActorID] = a
			order = append(order, l.ActorID)
		}
		a.total++
		if l.DurationSeconds != nil && *l.DurationSeconds > 0 {
			a.durations = append(a.durations, *l.DurationSeconds)
		}
	}

	out := make([]ActorSummary, 0, len(order))
	for _, id := range order {
		a := byActor[id]
		avg := 0
		if len(a.durations) > 0 {
			sum := 0
			for _, d := range a.durations {
				sum += d
			}
			avg = int(math.Round(float64(sum) / float64(len(a.durations))))
		}
		out = append(out, ActorSummary{
			ActorID:            id,
			ActorName:          models.DisplayName(id, names),
			TotalViews:         a.total,
			AvgDurationSeconds: avg,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalViews > out[j].TotalViews
	})
	return out
}

// FormatDuration renders seconds the way the admin console shows them.
func FormatDuration(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%d분 %d초", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%d초", seconds)
}

// DeviceLabel classifies a user agent as mobile or desktop.
func DeviceLabel(userAgent *string) string {
	if userAgent == nil || *userAgent == "" {
		return "알 수 없음"
	}
	if strings.Contains(*userAgent, "Mobile") {
		return "📱 모바일"
	}
	return "💻 데스크톱"
}
