package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jalsaathi/internal/logging"
	"jalsaathi/internal/models"
	"jalsaathi/internal/service/advisor"
)

const defaultHistoryLimit = 20

type askRequest struct {
	Question string `json:"question"`
	Locale   string `json:"locale"`
}

// askAdvisor answers as JSON, or as an event stream once the model starts
// producing output. Errors raised before the first chunk keep a JSON status.
func (h *Handler) askAdvisor(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	if h.advisor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": advisor.ErrDisabled.Error()})
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	locale := h.resolveLocale(c, req.Locale)

	var send func(string, interface{}) error
	onChunk := func(answer string) error {
		if send == nil {
			var ok bool
			if send, ok = startSSE(c); !ok {
				return errors.New("streaming not supported")
			}
		}
		return send("chunk", gin.H{"content": answer})
	}
	exchange, err := h.advisor.Ask(c.Request.Context(), userID, req.Question, locale, onChunk)
	if send != nil {
		if err != nil {
			_ = send("error", gin.H{"message": err.Error()})
			return
		}
		_ = send("done", exchange)
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, advisor.ErrEmptyQuestion):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, advisor.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		default:
			logging.L().WithError(err).WithField("user", userID).Error("advisor request failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "advisor unavailable"})
		}
		return
	}
	c.JSON(http.StatusOK, exchange)
}

func (h *Handler) advisorHistory(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	history, err := h.assistant.ListAdvisorHistory(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if history == nil {
		history = make([]*models.AdvisorExchange, 0)
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
