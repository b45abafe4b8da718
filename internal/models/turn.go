package models

import "time"

// Sender marks who authored a turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// TemplateID names the canned message a turn's text was rendered from.
// User-authored turns carry TemplateNone.
type TemplateID string

const (
	TemplateNone           TemplateID = ""
	TemplateWelcome        TemplateID = "welcome"
	TemplateIntentReply    TemplateID = "intent_reply"
	TemplateQuickReplyAck  TemplateID = "quick_reply_ack"
	TemplateLocationShared TemplateID = "location_shared"
	TemplateNearbyOffice   TemplateID = "nearby_office"
)

// SuggestedAction is a button offered on a bot turn.
type SuggestedAction struct {
	Label    string `json:"label"`
	Token    string `json:"action"`
	LabelKey string `json:"label_key,omitempty"`
}

// Turn is one transcript entry.
type Turn struct {
	ID               string            `json:"id"`
	Seq              int               `json:"seq"`
	Text             string            `json:"text"`
	Sender           Sender            `json:"sender"`
	Template         TemplateID        `json:"template,omitempty"`
	Intent           string            `json:"intent,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (t *Turn) Clone() *Turn {
	if t == nil {
		return nil
	}
	c := *t
	if len(t.SuggestedActions) > 0 {
		c.SuggestedActions = append([]SuggestedAction(nil), t.SuggestedActions...)
	}
	return &c
}

// QuickReply is a predefined shortcut bound to a routing token.
type QuickReply struct {
	ID    string `json:"id"`
	Token string `json:"action"`
	Label string `json:"label"`
}
