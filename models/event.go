package models

import (
	"time"
)

// Event status constants
const (
	EventStatusDraft     = "DRAFT"
	EventStatusPublished = "PUBLISHED"
	EventStatusSoldOut   = "SOLD_OUT"
	EventStatusCancelled = "CANCELLED"
	EventStatusCompleted = "COMPLETED"
)

type Event struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Venue       string    `json:"venue" db:"venue"`
	EventDate   time.Time `json:"event_date" db:"event_date"`
	Capacity    int       `json:"capacity" db:"capacity"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CreateEventRequest struct {
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	Venue       string    `json:"venue" binding:"required"`
	EventDate   time.Time `json:"event_date" binding:"required"`
	Capacity    int       `json:"capacity"`
}

type UpdateEventStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// EventWithBookings is returned by list endpoints that include demand counts
type EventWithBookings struct {
	Event
	ConfirmedBookings int `json:"confirmed_bookings"`
}
