package dispatch

import "time"

// Event asks for tasks to be appended to a worker's queue.
type Event struct {
	WorkerID  string
	TaskIDs   []string
	CreatedAt time.Time
}
