// Package directory serves the read-only reference data shown next to the
// chat: water status cards, emergency helplines and chat suggestions.
package directory

import (
	"time"

	"jalsaathi/internal/chat"
	"jalsaathi/internal/i18n"
	"jalsaathi/internal/models"
)

type statusDef struct {
	id          string
	kind        string
	titleKey    string
	level       models.StatusLevel
	value       string
	unit        string
	location    string
	advisoryKey string
	age         time.Duration
}

var statusDefs = []statusDef{
	{id: "1", kind: "quality", titleKey: "waterQuality", level: models.LevelCaution, value: "Moderate", location: "Central District", advisoryKey: "boilWater", age: time.Hour},
	{id: "2", kind: "flood", titleKey: "floodRisk", level: models.LevelDanger, value: "High", location: "Riverside Area", advisoryKey: "avoidTapWater"},
	{id: "3", kind: "rainfall", titleKey: "rainfall", level: models.LevelSafe, value: "25", unit: "mm", location: "City Center", age: 2 * time.Hour},
	{id: "4", kind: "supply", titleKey: "waterSupply", level: models.LevelSafe, value: "Normal", location: "All Districts", age: 30 * time.Minute},
}

var contacts = []models.EmergencyContact{
	{ID: "1", Name: "Water Emergency Helpline", Number: "1800-425-2255", Type: "water"},
	{ID: "2", Name: "Flood Control Room", Number: "1800-233-4567", Type: "flood"},
	{ID: "3", Name: "Water Quality Complaints", Number: "1800-498-7890", Type: "quality"},
}

// Service renders directory data for a locale.
type Service struct {
	localizer chat.Localizer
	now       func() time.Time
}

func NewService(l chat.Localizer) *Service {
	if l == nil {
		l = i18n.Provider{}
	}
	return &Service{localizer: l, now: time.Now}
}

// Statuses returns the dashboard cards, timestamped relative to now.
func (s *Service) Statuses(locale i18n.Locale) []models.WaterStatus {
	locale = i18n.Normalize(locale)
	now := s.now().UTC()
	out := make([]models.WaterStatus, 0, len(statusDefs))
	for _, def := range statusDefs {
		st := models.WaterStatus{
			ID:        def.id,
			Type:      def.kind,
			Title:     s.localizer.Localize(def.titleKey, locale),
			Status:    def.level,
			Label:     s.localizer.Localize(string(def.level), locale),
			Value:     def.value,
			Unit:      def.unit,
			Location:  def.location,
			Timestamp: now.Add(-def.age),
		}
		if def.advisoryKey != "" {
			st.Advisory = s.localizer.Localize(def.advisoryKey, locale)
		}
		out = append(out, st)
	}
	return out
}

// Contacts returns the emergency helplines.
func (s *Service) Contacts() []models.EmergencyContact {
	return append([]models.EmergencyContact(nil), contacts...)
}

// Suggestions returns the chat shortcuts shown under the composer.
func (s *Service) Suggestions(locale i18n.Locale) []models.SuggestedAction {
	locale = i18n.Normalize(locale)
	keys := []struct{ key, token string }{
		{"reportIssue", "report"},
		{"waterStatus", "status"},
		{"getHelp", "help"},
	}
	out := make([]models.SuggestedAction, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.SuggestedAction{
			Label:    s.localizer.Localize(k.key, locale),
			Token:    k.token,
			LabelKey: k.key,
		})
	}
	return out
}
