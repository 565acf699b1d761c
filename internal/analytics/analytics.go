// Package analytics derives productivity metrics from one owner's task list.
// Everything is a pure function of (tasks, now); all date comparisons work on
// calendar days, never raw timestamps.
package analytics

import (
	"math"
	"time"

	"pracsphere/backend/internal/models"
)

type Stats struct {
	TotalTasks        int `json:"totalTasks"`
	CompletedTasks    int `json:"completedTasks"`
	PendingTasks      int `json:"pendingTasks"`
	OverdueTasks      int `json:"overdueTasks"`
	CompletionRate    int `json:"completionRate"`
	TodayTasks        int `json:"todayTasks"`
	WeekTasks         int `json:"weekTasks"`
	HighPriority      int `json:"highPriority"`
	MediumPriority    int `json:"mediumPriority"`
	LowPriority       int `json:"lowPriority"`
	ProductivityScore int `json:"productivityScore"`
}

// Day truncates a timestamp to the start of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Compute derives all counters relative to the day containing now.
func Compute(tasks []models.Task, now time.Time) Stats {
	today := Day(now)
	weekEnd := today.AddDate(0, 0, 7)

	var s Stats
	s.TotalTasks = len(tasks)

	completedHigh := 0
	for _, t := range tasks {
		due := Day(t.DueDate)

		switch t.Status {
		case models.StatusCompleted:
			s.CompletedTasks++
			if t.Priority == models.PriorityHigh {
				completedHigh++
			}
			continue
		case models.StatusPending:
			s.PendingTasks++
		}

		// Everything below only counts pending tasks.
		if due.Before(today) {
			s.OverdueTasks++
		}
		if due.Equal(today) {
			s.TodayTasks++
		}
		if !due.Before(today) && !due.After(weekEnd) {
			s.WeekTasks++
		}

		switch t.Priority {
		case models.PriorityHigh:
			s.HighPriority++
		case models.PriorityMedium:
			s.MediumPriority++
		default:
			s.LowPriority++
		}
	}

	if s.TotalTasks > 0 {
		s.CompletionRate = int(math.Round(float64(s.CompletedTasks) / float64(s.TotalTasks) * 100))
		s.ProductivityScore = productivityScore(s, completedHigh)
	}

	return s
}

// productivityScore weighs completion rate at 50%, subtracts up to 30 points
// for the overdue ratio and adds 2 points per completed high-priority task,
// clamped to [0, 100].
func productivityScore(s Stats, completedHigh int) int {
	score := float64(s.CompletionRate) * 0.5
	score -= float64(s.OverdueTasks) / float64(s.TotalTasks) * 30
	score += float64(completedHigh) * 2

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
