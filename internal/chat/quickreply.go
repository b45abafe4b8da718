package chat

import (
	"jalsaathi/internal/i18n"
	"jalsaathi/internal/models"
)

type quickReplyDef struct {
	id       string
	token    string
	labelKey string
}

var quickReplyDefs = []quickReplyDef{
	{id: "report", token: "report", labelKey: "reportIssue"},
	{id: "track", token: "reports", labelKey: "myReports"},
	{id: "map", token: "map", labelKey: "mapView"},
	{id: "help", token: "help", labelKey: "getHelp"},
}

// QuickReplies renders the fixed quick-reply set for a locale.
func QuickReplies(l Localizer, locale i18n.Locale) []models.QuickReply {
	if l == nil {
		l = i18n.Provider{}
	}
	out := make([]models.QuickReply, 0, len(quickReplyDefs))
	for _, def := range quickReplyDefs {
		out = append(out, models.QuickReply{
			ID:    def.id,
			Token: def.token,
			Label: l.Localize(def.labelKey, locale),
		})
	}
	return out
}

// FindQuickReply looks up a quick reply by id.
func FindQuickReply(l Localizer, id string, locale i18n.Locale) (models.QuickReply, bool) {
	for _, r := range QuickReplies(l, locale) {
		if r.ID == id {
			return r, true
		}
	}
	return models.QuickReply{}, false
}

func welcomeActions(l Localizer, locale i18n.Locale) []models.SuggestedAction {
	return []models.SuggestedAction{
		{Label: l.Localize("reportIssue", locale), Token: "report", LabelKey: "reportIssue"},
		{Label: l.Localize("waterStatus", locale), Token: "status", LabelKey: "waterStatus"},
	}
}

func mapAction(l Localizer, locale i18n.Locale) []models.SuggestedAction {
	return []models.SuggestedAction{
		{Label: l.Localize("mapView", locale), Token: "map", LabelKey: "mapView"},
	}
}
