package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jalsaathi/internal/auth"
	"jalsaathi/internal/chat"
	"jalsaathi/internal/i18n"
	"jalsaathi/internal/metrics"
	"jalsaathi/internal/models"
	"jalsaathi/internal/service/assistant"
	"jalsaathi/internal/service/directory"
	"jalsaathi/internal/service/reports"
	"jalsaathi/internal/worker"
)

// ConversationManager is the part of worker.Manager the handlers drive.
type ConversationManager interface {
	Create(ctx context.Context, userID int64, locale i18n.Locale) (*worker.Snapshot, error)
	Get(ctx context.Context, userID int64, conversationID string) (*worker.Snapshot, error)
	SubmitText(ctx context.Context, userID int64, conversationID, text string, locale i18n.Locale) (<-chan worker.Event, error)
	SubmitQuickReply(ctx context.Context, userID int64, conversationID, replyID string, locale i18n.Locale) (<-chan worker.Event, error)
	SubmitLocation(ctx context.Context, userID int64, conversationID string, geo chat.Geolocator, locale i18n.Locale) (<-chan worker.Event, error)
	ActivateAction(ctx context.Context, userID int64, conversationID, token string) (string, error)
	ChangeLocale(ctx context.Context, userID int64, conversationID string, locale i18n.Locale) (*worker.Snapshot, error)
	Delete(ctx context.Context, userID int64, conversationID string) error
}

// AlertSource yields weather alerts for a coordinate.
type AlertSource interface {
	Alerts(ctx context.Context, lat, lon float64) ([]models.WeatherAlert, error)
}

// Advisor answers free-form water questions.
type Advisor interface {
	Ask(ctx context.Context, userID int64, question string, locale i18n.Locale, onChunk func(string) error) (*models.AdvisorExchange, error)
}

// Dependencies groups what NewHandler wires into the routes. Weather,
// Advisor and Metrics may be nil.
type Dependencies struct {
	Assistant      *assistant.Service
	Auth           *auth.Service
	Conversations  ConversationManager
	Reports        *reports.Service
	Directory      *directory.Service
	Weather        AlertSource
	Advisor        Advisor
	Metrics        *metrics.ChatMetrics
	// UploadDir is served read-only under /uploads.
	UploadDir      string
	MaxUploadBytes int64
	CookieSecure   bool
	DefaultLocale  i18n.Locale
}

// Handler wires HTTP routes to the conversation workers and services.
type Handler struct {
	assistant      *assistant.Service
	auth           *auth.Service
	conversations  ConversationManager
	reports        *reports.Service
	directory      *directory.Service
	weather        AlertSource
	advisor        Advisor
	metrics        *metrics.ChatMetrics
	uploadDir      string
	maxUploadBytes int64
	cookieSecure   bool
	defaultLocale  i18n.Locale
}

// NewHandler constructs a Handler instance.
func NewHandler(deps Dependencies) *Handler {
	def := deps.DefaultLocale
	if !def.Valid() {
		def = i18n.Default
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &Handler{
		assistant:      deps.Assistant,
		auth:           deps.Auth,
		conversations:  deps.Conversations,
		reports:        deps.Reports,
		directory:      deps.Directory,
		weather:        deps.Weather,
		advisor:        deps.Advisor,
		metrics:        deps.Metrics,
		uploadDir:      deps.UploadDir,
		maxUploadBytes: maxUpload,
		cookieSecure:   deps.CookieSecure,
		defaultLocale:  def,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.requestLogger())
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
	if h.uploadDir != "" {
		router.Static("/uploads", h.uploadDir)
	}

	api := router.Group("/api")
	api.POST("/users/register", h.registerUser)
	api.POST("/users/login", h.loginUser)
	api.GET("/translations", h.getTranslations)
	api.GET("/status", h.getStatus)
	api.GET("/contacts", h.getContacts)
	api.GET("/suggestions", h.getSuggestions)
	api.GET("/alerts", h.getAlerts)

	protected := api.Group("")
	protected.Use(h.auth.Middleware(), h.auth.CSRFMiddleware())
	protected.POST("/users/logout", h.logoutUser)
	protected.DELETE("/users/me", h.deleteUser)

	protected.GET("/conversations", h.listConversations)
	protected.POST("/conversations", h.startConversation)
	protected.GET("/conversations/:cid", h.getConversation)
	protected.DELETE("/conversations/:cid", h.deleteConversation)
	protected.POST("/conversations/:cid/messages", h.sendMessage)
	protected.POST("/conversations/:cid/quick-replies/:reply", h.sendQuickReply)
	protected.POST("/conversations/:cid/location", h.shareLocation)
	protected.POST("/conversations/:cid/actions", h.activateAction)
	protected.PUT("/conversations/:cid/locale", h.changeLocale)

	protected.GET("/reports", h.listReports)
	protected.POST("/reports", h.createReport)
	protected.GET("/reports/:rid", h.getReport)
	protected.PATCH("/reports/:rid/status", h.updateReportStatus)
	protected.POST("/reports/images", h.uploadImage)

	protected.POST("/advisor/ask", h.askAdvisor)
	protected.GET("/advisor/history", h.advisorHistory)
}

func (h *Handler) authorizedUserID(c *gin.Context) (int64, bool) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return 0, false
	}
	return userID, true
}

// resolveLocale picks the body locale, then ?locale=, then Accept-Language.
// An explicit but unsupported value falls back to the default.
func (h *Handler) resolveLocale(c *gin.Context, fromBody string) i18n.Locale {
	if strings.TrimSpace(fromBody) != "" {
		if loc, ok := i18n.Parse(fromBody); ok {
			return loc
		}
		return h.defaultLocale
	}
	if q := c.Query("locale"); q != "" {
		if loc, ok := i18n.Parse(q); ok {
			return loc
		}
		return h.defaultLocale
	}
	if header := c.GetHeader("Accept-Language"); header != "" {
		return i18n.Negotiate(header)
	}
	return h.defaultLocale
}

// submissionLocale is like resolveLocale but returns "" when the request
// names no locale, so the conversation keeps its own.
func (h *Handler) submissionLocale(c *gin.Context, fromBody string) i18n.Locale {
	if strings.TrimSpace(fromBody) == "" && c.Query("locale") == "" {
		return ""
	}
	return h.resolveLocale(c, fromBody)
}

// User create&login interface
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.assistant.RegisterUser(c.Request.Context(), assistant.Registration{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, assistant.ErrMissingCredentials), errors.Is(err, assistant.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) loginUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.assistant.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, assistant.ErrInvalidCredentials):
			status = http.StatusUnauthorized
		case errors.Is(err, assistant.ErrMissingCredentials):
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	authToken, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	csrfToken, err := h.auth.NewCSRFToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	h.auth.SetSessionCookies(c, authToken, csrfToken, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"full_name":  user.FullName,
		"created_at": user.CreatedAt,
		"auth_token": authToken,
		"csrf_token": csrfToken,
	})
}

func (h *Handler) logoutUser(c *gin.Context) {
	if _, ok := h.authorizedUserID(c); !ok {
		return
	}
	if authToken, ok := auth.AuthTokenFromContext(c); ok {
		_ = h.auth.RevokeToken(c.Request.Context(), authToken)
	}
	h.auth.ClearSessionCookies(c, h.cookieSecure)
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	if err := h.auth.RevokeUserTokens(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	convs, err := h.assistant.ListConversations(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for _, conv := range convs {
		if err := h.conversations.Delete(c.Request.Context(), id, conv.ID); err != nil && !errors.Is(err, worker.ErrConversationNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if err := h.assistant.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, assistant.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.auth.ClearSessionCookies(c, h.cookieSecure)
	c.Status(http.StatusNoContent)
}

func (h *Handler) getTranslations(c *gin.Context) {
	locale := h.resolveLocale(c, "")
	c.JSON(http.StatusOK, gin.H{
		"locale":       locale,
		"translations": i18n.Table(locale),
	})
}
