package domain

import "time"

// Task is an ad-hoc work item owned by a user.
type Task struct {
	ID            int64
	Text          string
	Completed     bool
	Priority      Priority
	UserEmail     string
	AssignedTo    *string
	ScreenshotURL *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
