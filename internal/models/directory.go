package models

import "time"

// StatusLevel grades a water status reading.
type StatusLevel string

const (
	LevelSafe    StatusLevel = "safe"
	LevelCaution StatusLevel = "caution"
	LevelDanger  StatusLevel = "danger"
)

// WaterStatus is one dashboard card.
type WaterStatus struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Title     string      `json:"title"`
	Status    StatusLevel `json:"status"`
	Label     string      `json:"label"`
	Value     string      `json:"value"`
	Unit      string      `json:"unit,omitempty"`
	Location  string      `json:"location"`
	Advisory  string      `json:"advisory,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// EmergencyContact is a helpline shown on the help page.
type EmergencyContact struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
	Type   string `json:"type"`
}

// WeatherAlert is derived from current weather at a coordinate.
type WeatherAlert struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// AdvisorExchange is one stored advisor question and answer.
type AdvisorExchange struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"created_at"`
}
