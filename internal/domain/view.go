package domain

import "time"

// TicketView is the API-facing shape of a ticket. Optional text fields are
// null when absent and Screenshots is never null.
type TicketView struct {
	ID              int64        `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	SubmittedBy     string       `json:"submitted_by"`
	SubmittedByName string       `json:"submitted_by_name"`
	CCEmail         *string      `json:"cc_email"`
	Status          TicketStatus `json:"status"`
	Priority        Priority     `json:"priority"`
	Location        *string      `json:"location"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	Archived        bool         `json:"archived"`
	Screenshots     []string     `json:"screenshots"`
	AssignedTo      *string      `json:"assigned_to"`
}

// TaskView is the API-facing shape of a task.
type TaskView struct {
	ID            int64     `json:"id"`
	Text          string    `json:"text"`
	Completed     bool      `json:"completed"`
	Priority      Priority  `json:"priority"`
	UserEmail     string    `json:"user_email"`
	AssignedTo    *string   `json:"assigned_to"`
	ScreenshotURL *string   `json:"screenshot_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
