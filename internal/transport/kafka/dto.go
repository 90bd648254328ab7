package kafka

import (
	"strings"
	"time"

	"onfleet-workers-go/internal/dispatch"
)

// EventDTO is the wire form of a task-assignment event.
type EventDTO struct {
	WorkerID  string    `json:"worker_id"`
	TaskIDs   []string  `json:"task_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// ToDomain converts EventDTO to dispatch.Event
func ToDomain(dto EventDTO) dispatch.Event {
	tasks := make([]string, 0, len(dto.TaskIDs))
	for _, t := range dto.TaskIDs {
		if t = strings.TrimSpace(t); t != "" {
			tasks = append(tasks, t)
		}
	}
	return dispatch.Event{
		WorkerID:  strings.TrimSpace(dto.WorkerID),
		TaskIDs:   tasks,
		CreatedAt: dto.CreatedAt,
	}
}
