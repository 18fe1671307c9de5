package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking status constants
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
)

type Booking struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	EventID     int64      `json:"event_id" db:"event_id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	Status      string     `json:"status" db:"status"`
	BookingDate time.Time  `json:"booking_date" db:"booking_date"`
	QRCodeToken *string    `json:"qr_code_token,omitempty" db:"qr_code_token"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type CreateBookingRequest struct {
	EventID int64 `json:"event_id" binding:"required"`
}

// BookingDetail joins the booking with its event for list/detail responses
type BookingDetail struct {
	Booking
	EventName  string    `json:"event_name"`
	EventVenue string    `json:"event_venue"`
	EventDate  time.Time `json:"event_date"`
}
