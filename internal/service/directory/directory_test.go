package directory

import (
	"testing"
	"time"

	"jalsaathi/internal/i18n"
	"jalsaathi/internal/models"
)

func TestStatusesLocalized(t *testing.T) {
	svc := NewService(nil)
	fixed := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	statuses := svc.Statuses(i18n.HI)
	if len(statuses) != 4 {
		t.Fatalf("expected 4 statuses, got %d", len(statuses))
	}
	quality := statuses[0]
	if quality.Title != i18n.Localize("waterQuality", i18n.HI) {
		t.Fatalf("title not localized: %q", quality.Title)
	}
	if quality.Label != i18n.Localize("caution", i18n.HI) || quality.Status != models.LevelCaution {
		t.Fatalf("unexpected level %+v", quality)
	}
	if !quality.Timestamp.Equal(fixed.Add(-time.Hour)) {
		t.Fatalf("unexpected timestamp %v", quality.Timestamp)
	}
	if statuses[2].Advisory != "" || statuses[2].Unit != "mm" {
		t.Fatalf("rainfall card should carry a unit and no advisory: %+v", statuses[2])
	}
}

func TestUnsupportedLocaleFallsBackToEnglish(t *testing.T) {
	svc := NewService(nil)
	got := svc.Suggestions(i18n.Locale("fr"))
	if len(got) != 3 || got[0].Label != "Report Issue" || got[0].Token != "report" {
		t.Fatalf("unexpected suggestions %+v", got)
	}
}

func TestContactsReturnsCopy(t *testing.T) {
	svc := NewService(nil)
	first := svc.Contacts()
	first[0].Number = "0"
	if svc.Contacts()[0].Number != "1800-425-2255" {
		t.Fatalf("contacts table was mutated through the returned slice")
	}
}
