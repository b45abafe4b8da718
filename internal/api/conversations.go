package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jalsaathi/internal/chat"
	"jalsaathi/internal/logging"
	"jalsaathi/internal/models"
	"jalsaathi/internal/worker"
)

type startRequest struct {
	Locale string `json:"locale"`
}

type messageRequest struct {
	Text   string `json:"text"`
	Locale string `json:"locale"`
}

type quickReplyRequest struct {
	Locale string `json:"locale"`
}

// locationRequest carries either a browser position or the reason it failed.
type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     string   `json:"error"`
	Locale    string   `json:"locale"`
}

type actionRequest struct {
	Action string `json:"action"`
}

type localeRequest struct {
	Locale string `json:"locale"`
}

// writeWorkerError maps worker errors onto HTTP statuses.
func writeWorkerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, worker.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, worker.ErrResponsePending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, worker.ErrEmptyInput), errors.Is(err, worker.ErrUnknownQuickReply):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, worker.ErrManagerClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
	default:
		logging.L().WithError(err).Error("conversation request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) listConversations(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	convs, err := h.assistant.ListConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if convs == nil {
		convs = make([]models.Conversation, 0)
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (h *Handler) startConversation(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req startRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	snap, err := h.conversations.Create(c.Request.Context(), userID, h.resolveLocale(c, req.Locale))
	if err != nil {
		writeWorkerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (h *Handler) getConversation(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	snap, err := h.conversations.Get(c.Request.Context(), userID, c.Param("cid"))
	if err != nil {
		writeWorkerError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) deleteConversation(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	if err := h.conversations.Delete(c.Request.Context(), userID, c.Param("cid")); err != nil {
		writeWorkerError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) sendMessage(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	stream, err := h.conversations.SubmitText(c.Request.Context(), userID, c.Param("cid"), req.Text, h.submissionLocale(c, req.Locale))
	if err != nil {
		writeWorkerError(c, err)
		return
	}
	h.streamEvents(c, stream)
}

func (h *Handler) sendQuickReply(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req quickReplyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	stream, err := h.conversations.SubmitQuickReply(c.Request.Context(), userID, c.Param("cid"), c.Param("reply"), h.submissionLocale(c, req.Locale))
	if err != nil {
		writeWorkerError(c, err)
		return
	}
	h.streamEvents(c, stream)
}

func (h *Handler) shareLocation(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	geo, err := req.geolocator()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stream, err := h.conversations.SubmitLocation(c.Request.Context(), userID, c.Param("cid"), geo, h.submissionLocale(c, req.Locale))
	if err != nil {
		writeWorkerError(c, err)
		return
	}
	h.streamEvents(c, stream)
}

// geolocator turns the request into the position the browser reported. A
// reported failure, or a body without coordinates, is a failed lookup.
func (r locationRequest) geolocator() (chat.Geolocator, error) {
	if strings.TrimSpace(r.Error) != "" || r.Latitude == nil || r.Longitude == nil {
		return chat.StaticPosition{Err: chat.ErrLocationUnavailable}, nil
	}
	lat, lon := *r.Latitude, *r.Longitude
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, errors.New("coordinates out of range")
	}
	return chat.StaticPosition{Position: chat.Position{Latitude: lat, Longitude: lon}}, nil
}

func (h *Handler) activateAction(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	route, err := h.conversations.ActivateAction(c.Request.Context(), userID, c.Param("cid"), req.Action)
	if err != nil {
		writeWorkerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": route})
}

func (h *Handler) changeLocale(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req localeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	snap, err := h.conversations.ChangeLocale(c.Request.Context(), userID, c.Param("cid"), h.resolveLocale(c, req.Locale))
	if err != nil {
		writeWorkerError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// streamEvents relays worker events as server-sent events until the stream
// closes or the client goes away.
func (h *Handler) streamEvents(c *gin.Context, stream <-chan worker.Event) {
	send, ok := startSSE(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, open := <-stream:
			if !open {
				return
			}
			if err := send(evt.Type, evt); err != nil {
				logging.L().WithError(err).Debug("sse client write failed")
				return
			}
		}
	}
}

// startSSE switches the response to an event stream and returns a writer
// for named events.
func startSSE(c *gin.Context) (func(event string, payload interface{}) error, bool) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return nil, false
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	send := func(event string, payload interface{}) error {
		var data []byte
		switch v := payload.(type) {
		case string:
			data = []byte(v)
		default:
			var err error
			data, err = json.Marshal(v)
			if err != nil {
				return err
			}
		}
		if event != "" {
			if _, err := fmt.Fprintf(c.Writer, "event: %s\n", event); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
	return send, true
}
