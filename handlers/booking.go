package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"campustix-backend/models"
	"campustix-backend/ticket"
)

type BookingHandler struct {
	db     *pgxpool.Pool
	issuer *ticket.Issuer
}

func NewBookingHandler(db *pgxpool.Pool, issuer *ticket.Issuer) *BookingHandler {
	return &BookingHandler{
		db:     db,
		issuer: issuer,
	}
}

// PGBookingLinker writes issued tokens onto booking rows. The qr_code_token
// predicate makes the attach one-shot: a booking never gets a second token.
type PGBookingLinker struct {
	db *pgxpool.Pool
}

func NewPGBookingLinker(db *pgxpool.Pool) *PGBookingLinker {
	return &PGBookingLinker{db: db}
}

func (l *PGBookingLinker) AttachToken(ctx context.Context, bookingID, token string) error {
	tag, err := l.db.Exec(ctx, `
		UPDATE bookings
		SET qr_code_token = $2, updated_at = now()
		WHERE id = $1 AND qr_code_token IS NULL
	`, bookingID, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found or already has a token", bookingID)
	}
	return nil
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("user_id")

	// The event must be open for booking.
	var status string
	err := h.db.QueryRow(c, "SELECT status FROM events WHERE id = $1", req.EventID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		log.Printf("Error looking up event %d: %v", req.EventID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if status != models.EventStatusPublished {
		c.JSON(http.StatusConflict, gin.H{"error": "Event is not open for booking"})
		return
	}

	query := `
		INSERT INTO bookings (id, event_id, user_id, status, booking_date)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, event_id, user_id, status, booking_date, qr_code_token, created_at, updated_at
	`

	var booking models.Booking
	err = h.db.QueryRow(c, query,
		uuid.New(),
		req.EventID,
		userID,
		models.BookingStatusPending,
	).Scan(
		&booking.ID,
		&booking.EventID,
		&booking.UserID,
		&booking.Status,
		&booking.BookingDate,
		&booking.QRCodeToken,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		log.Printf("Error creating booking for event %d: %v", req.EventID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// ConfirmBooking moves a pending booking to confirmed and issues its ticket
// token. Payment settlement happens upstream; by the time this is called the
// booking is paid for.
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	bookingID := c.Param("id")
	userID := c.GetString("user_id")

	if _, err := uuid.Parse(bookingID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	// Load the booking with its event and owner snapshot in one shot.
	var (
		booking    models.Booking
		userEmail  string
		userName   string
		eventName  string
		eventDate  time.Time
		eventVenue string
	)
	query := `
		SELECT b.id, b.event_id, b.user_id, b.status, b.booking_date, b.qr_code_token,
		       u.email, u.name, e.name, e.event_date, e.venue
		FROM bookings b
		JOIN users u ON b.user_id = u.id
		JOIN events e ON b.event_id = e.id
		WHERE b.id = $1
	`
	err := h.db.QueryRow(c, query, bookingID).Scan(
		&booking.ID,
		&booking.EventID,
		&booking.UserID,
		&booking.Status,
		&booking.BookingDate,
		&booking.QRCodeToken,
		&userEmail,
		&userName,
		&eventName,
		&eventDate,
		&eventVenue,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
		log.Printf("Error loading booking %s: %v", bookingID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if booking.UserID.String() != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your booking"})
		return
	}

	if booking.QRCodeToken != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Booking already has a ticket", "token": *booking.QRCodeToken})
		return
	}

	if booking.Status == models.BookingStatusCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "Booking is cancelled"})
		return
	}

	if booking.Status != models.BookingStatusConfirmed {
		tag, err := h.db.Exec(c, `
			UPDATE bookings SET status = $2, updated_at = now()
			WHERE id = $1 AND status = $3
		`, bookingID, models.BookingStatusConfirmed, models.BookingStatusPending)
		if err != nil || tag.RowsAffected() == 0 {
			log.Printf("Error confirming booking %s: %v", bookingID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm booking"})
			return
		}
	}

	token, err := h.issuer.Issue(c, ticket.IssueInput{
		BookingID:   booking.ID.String(),
		UserID:      booking.UserID.String(),
		UserEmail:   userEmail,
		UserName:    userName,
		EventID:     booking.EventID,
		EventName:   eventName,
		EventDate:   eventDate,
		EventVenue:  eventVenue,
		BookingDate: booking.BookingDate,
	})
	if err != nil {
		log.Printf("Ticket issuance failed for booking %s: %v", bookingID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue ticket"})
		return
	}

	log.Printf("Issued ticket for booking %s (event %d)", bookingID, booking.EventID)

	c.JSON(http.StatusOK, gin.H{
		"booking_id": booking.ID,
		"status":     models.BookingStatusConfirmed,
		"token":      token,
	})
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID := c.Param("id")
	userID := c.GetString("user_id")

	var detail models.BookingDetail
	query := `
		SELECT b.id, b.event_id, b.user_id, b.status, b.booking_date, b.qr_code_token,
		       b.created_at, b.updated_at, e.name, e.venue, e.event_date
		FROM bookings b
		JOIN events e ON b.event_id = e.id
		WHERE b.id = $1
	`
	err := h.db.QueryRow(c, query, bookingID).Scan(
		&detail.ID,
		&detail.EventID,
		&detail.UserID,
		&detail.Status,
		&detail.BookingDate,
		&detail.QRCodeToken,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&detail.EventName,
		&detail.EventVenue,
		&detail.EventDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
		log.Printf("Error getting booking %s: %v", bookingID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if detail.UserID.String() != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your booking"})
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *BookingHandler) ListBookings(c *gin.Context) {
	userID := c.GetString("user_id")

	query := `
		SELECT b.id, b.event_id, b.user_id, b.status, b.booking_date, b.qr_code_token,
		       b.created_at, b.updated_at, e.name, e.venue, e.event_date
		FROM bookings b
		JOIN events e ON b.event_id = e.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`

	rows, err := h.db.Query(c, query, userID)
	if err != nil {
		log.Printf("Error listing bookings for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	bookings := []models.BookingDetail{}
	for rows.Next() {
		var detail models.BookingDetail
		err := rows.Scan(
			&detail.ID,
			&detail.EventID,
			&detail.UserID,
			&detail.Status,
			&detail.BookingDate,
			&detail.QRCodeToken,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&detail.EventName,
			&detail.EventVenue,
			&detail.EventDate,
		)
		if err != nil {
			log.Printf("Error scanning booking row: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan booking"})
			return
		}
		bookings = append(bookings, detail)
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}
