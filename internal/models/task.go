package models

import (
	"time"

	"github.com/google/uuid"
)

// Task status enums. Transitions between them are owned by the lifecycle
// rules in services; nothing else mutates Status.
const (
	TaskStatusOpen        = "open"
	TaskStatusInProgress  = "in-progress"
	TaskStatusPendingConf = "pending-confirmation"
	TaskStatusCompleted   = "completed"
)

// Task categories form a closed set; create rejects anything else.
const (
	CategoryDelivery = "Delivery"
	CategoryHelp     = "Help"
	CategorySocial   = "Social"
	CategoryOther    = "Other"
)

// ValidCategory reports whether c is one of the supported task categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryDelivery, CategoryHelp, CategorySocial, CategoryOther:
		return true
	}
	return false
}

// Location is a lat/lng pair fixed at task creation (the map center at the
// time of posting). It is never updated afterwards.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Poster is a snapshot of the creating user taken at creation time.
// It is not live-linked to the user record.
type Poster struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar,omitempty"`
}

// Assignee is a snapshot of the claiming user taken at claim time.
type Assignee struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	RewardPence int64      `json:"reward_pence"`
	Currency    string     `json:"currency"`
	Location    Location   `json:"location"`
	Status      string     `json:"status"`
	Poster      Poster     `json:"poster"`
	Assignee    *Assignee  `json:"assignee,omitempty"`
	Rating      *int       `json:"rating,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
