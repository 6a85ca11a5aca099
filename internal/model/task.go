package model

// TaskStatus is the server-side lifecycle of one category × location task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskProcessing TaskStatus = "PROCESSING"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

// Terminal reports whether no further transition is expected.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task is observed, never mutated, by the client.
type Task struct {
	ID             string     `json:"id"`
	Category       string     `json:"category"`
	Location       string     `json:"location"`
	Status         TaskStatus `json:"status"`
	ProcessedItems int        `json:"processedItems"`
	TotalItems     int        `json:"totalItems"`
	Message        string     `json:"message,omitempty"`
}

// Progress returns processed/total clamped to [0,1]; 0 while total is unknown.
func (t Task) Progress() float64 {
	if t.TotalItems <= 0 {
		return 0
	}
	p := float64(t.ProcessedItems) / float64(t.TotalItems)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// AllTerminal is true when tasks is non-empty and every task is terminal.
func AllTerminal(tasks []Task) bool {
	if len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

// CountByStatus tallies tasks per status.
func CountByStatus(tasks []Task) map[TaskStatus]int {
	counts := make(map[TaskStatus]int, 4)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}
