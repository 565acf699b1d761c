// Package query holds the pure filter/search/sort pipeline applied to one
// owner's task list. Nothing here touches storage or mutates its input.
package query

import (
	"sort"
	"strings"

	"pracsphere/backend/internal/models"
)

type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterPending   StatusFilter = "pending"
	FilterCompleted StatusFilter = "completed"
)

type SortKey string

const (
	SortByDueDate  SortKey = "dueDate"
	SortByPriority SortKey = "priority"
	SortByStatus   SortKey = "status"
)

// Filter keeps tasks matching the status filter; FilterAll passes everything.
func Filter(tasks []models.Task, filter StatusFilter) []models.Task {
	if filter == FilterAll || filter == "" {
		return tasks
	}

	result := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if string(t.Status) == string(filter) {
			result = append(result, t)
		}
	}
	return result
}

// Search keeps tasks whose title or description contains term,
// case-insensitively. An empty term passes everything through.
func Search(tasks []models.Task, term string) []models.Task {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return tasks
	}

	result := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), term) ||
			strings.Contains(strings.ToLower(t.Description), term) {
			result = append(result, t)
		}
	}
	return result
}

// Sort returns a sorted copy. Ties keep the relative order of the input,
// which is why callers must filter before sorting.
func Sort(tasks []models.Task, key SortKey) []models.Task {
	result := make([]models.Task, len(tasks))
	copy(result, tasks)

	switch key {
	case SortByPriority:
		// Descending by rank: high before medium before low.
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Priority.Rank() > result[j].Priority.Rank()
		})
	case SortByStatus:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Status == models.StatusPending &&
				result[j].Status == models.StatusCompleted
		})
	default:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].DueDate.Before(result[j].DueDate)
		})
	}

	return result
}

// Apply runs the combined query in its fixed order: status filter, then
// search term, then sort.
func Apply(tasks []models.Task, filter StatusFilter, term string, key SortKey) []models.Task {
	return Sort(Search(Filter(tasks, filter), term), key)
}
