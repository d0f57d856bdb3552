package services

import (
	"time"

	"github.com/futuretasks/core/internal/domain/entities"
)

// sampleTasks is the welcome list installed on first start.
func sampleTasks(now time.Time) []entities.Task {
	base := now.UnixMilli()
	tomorrow := entities.DateOf(now.AddDate(0, 0, 1))
	completedAt := now

	return []entities.Task{
		{
			ID:        base - 3,
			Text:      "Welcome to FutureTasks! 🚀",
			Priority:  entities.PriorityHigh,
			Category:  entities.CategoryPersonal,
			CreatedAt: now,
		},
		{
			ID:        base - 2,
			Text:      "Try editing this task by clicking the edit button",
			Priority:  entities.PriorityMedium,
			Category:  entities.CategoryWork,
			DueDate:   &tomorrow,
			CreatedAt: now,
		},
		{
			ID:          base - 1,
			Text:        "Drag and drop tasks to reorder them",
			Completed:   true,
			Priority:    entities.PriorityLow,
			Category:    entities.CategoryOther,
			CreatedAt:   now,
			CompletedAt: &completedAt,
		},
	}
}
