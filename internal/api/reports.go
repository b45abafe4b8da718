package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jalsaathi/internal/models"
	"jalsaathi/internal/service/reports"
)

// multipartOverhead leaves room for form boundaries around the image.
const multipartOverhead = 1 << 20

type statusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

func writeReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
	case errors.Is(err, reports.ErrInvalidReport), errors.Is(err, reports.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func reportID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("rid"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) listReports(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	list, err := h.reports.List(c.Request.Context(), userID)
	if err != nil {
		writeReportError(c, err)
		return
	}
	if list == nil {
		list = make([]*models.Report, 0)
	}
	c.JSON(http.StatusOK, gin.H{"reports": list})
}

func (h *Handler) createReport(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req reports.NewReport
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	report, err := h.reports.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeReportError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *Handler) getReport(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	id, ok := reportID(c)
	if !ok {
		return
	}
	report, err := h.reports.Get(c.Request.Context(), userID, id)
	if err != nil {
		writeReportError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) updateReportStatus(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	id, ok := reportID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	report, err := h.reports.UpdateStatus(c.Request.Context(), userID, id, models.ReportStatus(req.Status), req.Comment)
	if err != nil {
		writeReportError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) uploadImage(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	defer f.Close()

	img, err := h.reports.SaveImage(c.Request.Context(), userID, file.Filename, f)
	if err != nil {
		switch {
		case errors.Is(err, reports.ErrImageTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		case errors.Is(err, reports.ErrUnsupportedType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save file failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, img)
}
