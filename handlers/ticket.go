package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"campustix-backend/ticket"
)

type TicketHandler struct {
	verifier *ticket.Verifier
}

func NewTicketHandler(verifier *ticket.Verifier) *TicketHandler {
	return &TicketHandler{verifier: verifier}
}

// VerifyTicket handles scans from venue clients. Staff see a tri-state
// outcome (admitted / already used / invalid); infrastructure failures are
// logged here but rendered with the same rejected vocabulary.
func (h *TicketHandler) VerifyTicket(c *gin.Context) {
	var req struct {
		Token     string `json:"token" binding:"required"`
		ScannedBy string `json:"scanned_by"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"admitted":        false,
			"already_scanned": false,
			"rejected":        "token is required",
		})
		return
	}

	result, err := h.verifier.Verify(c, req.Token, req.ScannedBy)
	if err != nil {
		if ticket.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{
				"admitted":        false,
				"already_scanned": false,
				"rejected":        "token is required",
			})
			return
		}
		// Store failure, not a bad token. Fail closed but log the difference.
		log.Printf("Ticket verification failed against store: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"admitted":        false,
			"already_scanned": false,
			"rejected":        ticket.RejectedInvalid,
		})
		return
	}

	if !result.Admitted {
		c.JSON(http.StatusNotFound, result)
		return
	}

	if result.AlreadyScanned {
		log.Printf("Duplicate scan for booking %s at event %s", result.Record.BookingID, result.Record.EventName)
	}
	c.JSON(http.StatusOK, result)
}

// TicketStatus is the read-only poll endpoint; it never mutates scan state.
func (h *TicketHandler) TicketStatus(c *gin.Context) {
	token := c.Param("token")

	result, err := h.verifier.Status(c, token)
	if err != nil {
		if ticket.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
			return
		}
		log.Printf("Ticket status check failed against store: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ticket status unavailable"})
		return
	}

	if !result.Admitted {
		c.JSON(http.StatusNotFound, gin.H{
			"admitted": false,
			"scanned":  false,
			"rejected": result.Rejected,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"admitted": true,
		"scanned":  result.AlreadyScanned,
		"record":   result.Record,
	})
}
