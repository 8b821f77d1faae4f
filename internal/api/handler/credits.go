package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wenqi/jobtailor/internal/service"
)

// CreditHandler serves the metered credit balance.
type CreditHandler struct {
	credits *service.CreditService
}

// NewCreditHandler creates a new credit handler.
func NewCreditHandler(credits *service.CreditService) *CreditHandler {
	return &CreditHandler{credits: credits}
}

// Balance returns a user's current credit balance.
// GET /api/v1/credits?user_id=...
func (h *CreditHandler) Balance(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	balance, err := h.credits.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"balance": balance,
	})
}

type grantRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

// Grant adds credits to a user's balance.
// POST /api/v1/credits/grant
func (h *CreditHandler) Grant(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if err := h.credits.Grant(c.Request.Context(), req.UserID, req.Amount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	balance, err := h.credits.Balance(c.Request.Context(), req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": req.UserID,
		"balance": balance,
	})
}
