package chat

import (
	"strings"

	"jalsaathi/internal/i18n"
)

// IntentTag classifies free-text input.
type IntentTag string

const (
	IntentWaterStatusInquiry IntentTag = "WATER_STATUS_INQUIRY"
	IntentHelpRequest        IntentTag = "HELP_REQUEST"
	IntentGeneral            IntentTag = "GENERAL"
)

// Intents lists every tag the selector must cover.
var Intents = []IntentTag{IntentWaterStatusInquiry, IntentHelpRequest, IntentGeneral}

type keywordSet struct {
	tag      IntentTag
	keywords map[i18n.Locale][]string
}

// Order matters: the first set with a hit wins.
var keywordSets = []keywordSet{
	{
		tag: IntentWaterStatusInquiry,
		keywords: map[i18n.Locale][]string{
			i18n.EN: {"water"},
			i18n.HI: {"पानी"},
			i18n.KN: {"ನೀರು"},
		},
	},
	{
		tag: IntentHelpRequest,
		keywords: map[i18n.Locale][]string{
			i18n.EN: {"help"},
			i18n.HI: {"मदद"},
			i18n.KN: {"ಸಹಾಯ"},
		},
	},
}

// Classify maps input to an intent by case-insensitive substring match.
// Within a set the active locale's keywords are tried first, then the other
// locales'. Unmatched input is IntentGeneral.
func Classify(input string, locale i18n.Locale) IntentTag {
	text := strings.ToLower(input)
	if strings.TrimSpace(text) == "" {
		return IntentGeneral
	}
	locale = i18n.Normalize(locale)
	for _, set := range keywordSets {
		if containsAny(text, set.keywords[locale]) {
			return set.tag
		}
		for _, other := range i18n.Supported {
			if other != locale && containsAny(text, set.keywords[other]) {
				return set.tag
			}
		}
	}
	return IntentGeneral
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
