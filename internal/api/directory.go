package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"jalsaathi/internal/logging"
	"jalsaathi/internal/models"
	"jalsaathi/internal/service/weather"
)

const alertsTimeout = 5 * time.Second

func (h *Handler) getContacts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"contacts": h.directory.Contacts()})
}

func (h *Handler) getSuggestions(c *gin.Context) {
	locale := h.resolveLocale(c, "")
	c.JSON(http.StatusOK, gin.H{"suggestions": h.directory.Suggestions(locale)})
}

// getStatus returns the dashboard cards and, when a coordinate is given,
// the weather alerts for it. A weather failure only drops the alerts.
func (h *Handler) getStatus(c *gin.Context) {
	locale := h.resolveLocale(c, "")
	lat, lon, hasCoord, err := coordinateQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		statuses []models.WaterStatus
		alerts   = make([]models.WeatherAlert, 0)
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		statuses = h.directory.Statuses(locale)
		return nil
	})
	if hasCoord && h.weather != nil {
		g.Go(func() error {
			alertCtx, cancel := context.WithTimeout(ctx, alertsTimeout)
			defer cancel()
			found, err := h.weather.Alerts(alertCtx, lat, lon)
			if err != nil {
				if !errors.Is(err, weather.ErrNotConfigured) {
					logging.L().WithError(err).Warn("weather alerts unavailable")
				}
				return nil
			}
			alerts = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"locale":   locale,
		"statuses": statuses,
		"alerts":   alerts,
	})
}

func (h *Handler) getAlerts(c *gin.Context) {
	lat, lon, hasCoord, err := coordinateQuery(c)
	if err != nil || !hasCoord {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon are required"})
		return
	}
	if h.weather == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "weather service unavailable"})
		return
	}
	alerts, err := h.weather.Alerts(c.Request.Context(), lat, lon)
	if err != nil {
		switch {
		case errors.Is(err, weather.ErrNotConfigured):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "weather service unavailable"})
		case errors.Is(err, weather.ErrInvalidCoordinate):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logging.L().WithError(err).Warn("fetch weather alerts failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "weather lookup failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// coordinateQuery reads ?lat=&lon=. Both absent is not an error.
func coordinateQuery(c *gin.Context) (lat, lon float64, ok bool, err error) {
	rawLat, rawLon := c.Query("lat"), c.Query("lon")
	if rawLat == "" && rawLon == "" {
		return 0, 0, false, nil
	}
	if rawLat == "" || rawLon == "" {
		return 0, 0, false, errors.New("lat and lon must be given together")
	}
	if lat, err = strconv.ParseFloat(rawLat, 64); err != nil {
		return 0, 0, false, errors.New("invalid lat")
	}
	if lon, err = strconv.ParseFloat(rawLon, 64); err != nil {
		return 0, 0, false, errors.New("invalid lon")
	}
	return lat, lon, true, nil
}
