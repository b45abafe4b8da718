package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"jalsaathi/internal/i18n"
)

const labelPlaceholder = "{label}"

var intentResponses = map[IntentTag]map[i18n.Locale]string{
	IntentWaterStatusInquiry: {
		i18n.EN: "Would you like to know more about the water situation in your area? Please share your location or tell us your pincode.",
		i18n.HI: "आपके क्षेत्र में जल की स्थिति के बारे में अधिक जानकारी चाहते हैं? कृपया अपना स्थान साझा करें या अपना पिनकोड बताएं।",
		i18n.KN: "ನಿಮ್ಮ ಪ್ರದೇಶದಲ್ಲಿ ನೀರಿನ ಸ್ಥಿತಿಯ ಬಗ್ಗೆ ಹೆಚ್ಚಿನ ಮಾಹಿತಿ ಬೇಕೇ? ದಯವಿಟ್ಟು ನಿಮ್ಮ ಸ್ಥಳವನ್ನು ಹಂಚಿಕೊಳ್ಳಿ ಅಥವಾ ನಿಮ್ಮ ಪಿನ್‌ಕೋಡ್ ಅನ್ನು ನಮಗೆ ತಿಳಿಸಿ.",
	},
	IntentHelpRequest: {
		i18n.EN: "What kind of assistance do you need? Would you like to report a water issue or do you need water-related emergency help?",
		i18n.HI: "आपको किस प्रकार की सहायता चाहिए? क्या आप पानी की समस्या की रिपोर्ट करना चाहते हैं या जल संबंधित आपातकालीन सहायता चाहिए?",
		i18n.KN: "ನಿಮಗೆ ಯಾವ ರೀತಿಯ ಸಹಾಯ ಬೇಕು? ನೀವು ನೀರಿನ ಸಮಸ್ಯೆಯನ್ನು ವರದಿ ಮಾಡಲು ಬಯಸುತ್ತೀರಾ ಅಥವಾ ನೀರಿಗೆ ಸಂಬಂಧಿಸಿದ ತುರ್ತು ಸಹಾಯ ಬೇಕೇ?",
	},
	IntentGeneral: {
		i18n.EN: "How can I assist you with water-related concerns today? Please provide more specific details or choose a category.",
		i18n.HI: "मैं आपकी जल संबंधित चिंताओं के साथ आज कैसे मदद कर सकता हूं? कृपया अधिक विशिष्ट विवरण प्रदान करें या एक श्रेणी चुनें।",
		i18n.KN: "ನಾನು ನಿಮಗೆ ನೀರಿಗೆ ಸಂಬಂಧಿಸಿದ ಕಾಳಜಿಗಳೊಂದಿಗೆ ಇಂದು ಹೇಗೆ ಸಹಾಯ ಮಾಡಬಹುದು? ದಯವಿಟ್ಟು ಹೆಚ್ಚಿನ ನಿರ್ದಿಷ್ಟ ವಿವರಗಳನ್ನು ಒದಗಿಸಿ ಅಥವಾ ವಿಭಾಗವನ್ನು ಆರಿಸಿ.",
	},
}

var quickReplyAcks = map[i18n.Locale]string{
	i18n.EN: "I'll help you with {label}. Let me take you to the right section.",
	i18n.HI: "मैं आपको {label} में मदद करूंगा। आपको सही सेक्शन पर ले जाता हूं।",
	i18n.KN: "ನಾನು ನಿಮಗೆ {label} ಸಹಾಯ ಮಾಡುತ್ತೇನೆ. ನಾನು ನಿಮ್ಮನ್ನು ಸರಿಯಾದ ವಿಭಾಗಕ್ಕೆ ಕರೆದೊಯ್ಯುತ್ತೇನೆ.",
}

var locationSharedPrefixes = map[i18n.Locale]string{
	i18n.EN: "Location shared",
	i18n.HI: "स्थान साझा किया गया",
	i18n.KN: "ಸ್ಥಳವನ್ನು ಹಂಚಿಕೊಳ್ಳಲಾಗಿದೆ",
}

var nearbyOfficeReplies = map[i18n.Locale]string{
	i18n.EN: "Thank you for sharing your location! I can see you're in Bangalore. The nearest BWSSB office is 2.3km away at MG Road. Would you like to view it on the map?",
	i18n.HI: "अपना स्थान साझा करने के लिए धन्यवाद! मैं देख सकता हूं कि आप बैंगलोर में हैं। निकटतम BWSSB कार्यालय MG रोड पर 2.3 किमी दूर है। क्या आप इसे मानचित्र पर देखना चाहेंगे?",
	i18n.KN: "ನಿಮ್ಮ ಸ್ಥಳವನ್ನು ಹಂಚಿಕೊಂಡಿದ್ದಕ್ಕಾಗಿ ಧನ್ಯವಾದಗಳು! ನೀವು ಬೆಂಗಳೂರಿನಲ್ಲಿ ಇರುವುದನ್ನು ನಾನು ನೋಡಬಹುದು. ಹತ್ತಿರದ BWSSB ಕಚೇರಿಯು MG ರಸ್ತೆಯಲ್ಲಿ 2.3 ಕಿಮೀ ದೂರದಲ್ಲಿದೆ. ನಕ್ಷೆಯಲ್ಲಿ ಇದನ್ನು ನೋಡಲು ಬಯಸುವಿರಾ?",
}

// ValidateTables checks that every (intent, locale) pair and every per-locale
// template is present. It runs once at startup.
func ValidateTables() error {
	var errs []error
	for _, tag := range Intents {
		row, ok := intentResponses[tag]
		if !ok {
			errs = append(errs, fmt.Errorf("intent %s has no responses", tag))
			continue
		}
		for _, loc := range i18n.Supported {
			if strings.TrimSpace(row[loc]) == "" {
				errs = append(errs, fmt.Errorf("intent %s missing locale %s", tag, loc))
			}
		}
	}
	for _, loc := range i18n.Supported {
		ack := quickReplyAcks[loc]
		if !strings.Contains(ack, labelPlaceholder) {
			errs = append(errs, fmt.Errorf("quick reply acknowledgement for %s lacks %s", loc, labelPlaceholder))
		}
		if strings.TrimSpace(locationSharedPrefixes[loc]) == "" {
			errs = append(errs, fmt.Errorf("location prefix missing locale %s", loc))
		}
		if strings.TrimSpace(nearbyOfficeReplies[loc]) == "" {
			errs = append(errs, fmt.Errorf("nearby office reply missing locale %s", loc))
		}
	}
	return errors.Join(errs...)
}

// SelectResponse returns the canned reply for an intent. Unsupported locales
// render in English.
func SelectResponse(tag IntentTag, locale i18n.Locale) string {
	row, ok := intentResponses[tag]
	if !ok {
		row = intentResponses[IntentGeneral]
	}
	return row[i18n.Normalize(locale)]
}

// QuickReplyAcknowledgement renders the acknowledgement for a chosen quick
// reply, embedding its label in lower case.
func QuickReplyAcknowledgement(label string, locale i18n.Locale) string {
	tmpl := quickReplyAcks[i18n.Normalize(locale)]
	return strings.ReplaceAll(tmpl, labelPlaceholder, strings.ToLower(label))
}

// LocationSharedText renders the user turn for a shared position.
func LocationSharedText(pos Position, locale i18n.Locale) string {
	prefix := locationSharedPrefixes[i18n.Normalize(locale)]
	return prefix + ": " + formatCoord(pos.Latitude) + ", " + formatCoord(pos.Longitude)
}

// NearbyOfficeReply is the bot answer to a shared location.
func NearbyOfficeReply(locale i18n.Locale) string {
	return nearbyOfficeReplies[i18n.Normalize(locale)]
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
