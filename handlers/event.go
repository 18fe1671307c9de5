package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"campustix-backend/models"
)

type EventHandler struct {
	db *pgxpool.Pool
}

func NewEventHandler(db *pgxpool.Pool) *EventHandler {
	return &EventHandler{db: db}
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Creating event: %s at %s", req.Name, req.Venue)

	query := `
		INSERT INTO events (name, description, venue, event_date, capacity, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, description, venue, event_date, capacity, status, created_at, updated_at
	`

	var event models.Event
	err := h.db.QueryRow(c, query,
		req.Name,
		req.Description,
		req.Venue,
		req.EventDate,
		req.Capacity,
		models.EventStatusPublished,
	).Scan(
		&event.ID,
		&event.Name,
		&event.Description,
		&event.Venue,
		&event.EventDate,
		&event.Capacity,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		log.Printf("Failed to create event: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
		return
	}

	c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) GetEvents(c *gin.Context) {
	query := `
		SELECT e.id, e.name, e.description, e.venue, e.event_date, e.capacity, e.status,
		       e.created_at, e.updated_at,
		       COUNT(b.id) FILTER (WHERE b.status = 'CONFIRMED') AS confirmed_bookings
		FROM events e
		LEFT JOIN bookings b ON b.event_id = e.id
		WHERE e.status != 'DRAFT'
		GROUP BY e.id
		ORDER BY e.event_date ASC
	`

	rows, err := h.db.Query(c, query)
	if err != nil {
		log.Printf("Error listing events: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	events := []models.EventWithBookings{}
	for rows.Next() {
		var ev models.EventWithBookings
		err := rows.Scan(
			&ev.ID,
			&ev.Name,
			&ev.Description,
			&ev.Venue,
			&ev.EventDate,
			&ev.Capacity,
			&ev.Status,
			&ev.CreatedAt,
			&ev.UpdatedAt,
			&ev.ConfirmedBookings,
		)
		if err != nil {
			log.Printf("Error scanning event row: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan event"})
			return
		}
		events = append(events, ev)
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID := c.Param("id")

	var event models.Event
	query := `
		SELECT id, name, description, venue, event_date, capacity, status, created_at, updated_at
		FROM events
		WHERE id = $1
	`

	err := h.db.QueryRow(c, query, eventID).Scan(
		&event.ID,
		&event.Name,
		&event.Description,
		&event.Venue,
		&event.EventDate,
		&event.Capacity,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		log.Printf("Error getting event %s: %v", eventID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) UpdateEventStatus(c *gin.Context) {
	eventID := c.Param("id")

	var req models.UpdateEventStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Status {
	case models.EventStatusDraft, models.EventStatusPublished, models.EventStatusSoldOut,
		models.EventStatusCancelled, models.EventStatusCompleted:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	query := `
		UPDATE events
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, name, description, venue, event_date, capacity, status, created_at, updated_at
	`

	var event models.Event
	err := h.db.QueryRow(c, query, eventID, req.Status).Scan(
		&event.ID,
		&event.Name,
		&event.Description,
		&event.Venue,
		&event.EventDate,
		&event.Capacity,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		log.Printf("Error updating event %s status: %v", eventID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update event status"})
		return
	}

	c.JSON(http.StatusOK, event)
}
