package domain

import (
	"encoding/json"
	"errors"
)

// ErrNoInnerEvent indica un envelope sin evento anidado.
var ErrNoInnerEvent = errors.New("envelope has no inner event")

const (
	EnvelopeURLVerification = "url_verification"
	EnvelopeEventCallback   = "event_callback"

	EventTypeMessage = "message"
	ChannelTypeIM    = "im"
)

// SlackEnvelope es el payload externo que Slack envía a /slack/events.
type SlackEnvelope struct {
	Token     string          `json:"token,omitempty"`
	Type      string          `json:"type"`
	Challenge string          `json:"challenge,omitempty"`
	TeamID    string          `json:"team_id,omitempty"`
	EventID   string          `json:"event_id,omitempty"`
	EventTime int64           `json:"event_time,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
}

// MessageEvent decodifica el evento anidado. Eventos con otra forma devuelven error y se ignoran.
func (e SlackEnvelope) MessageEvent() (*SlackMessageEvent, error) {
	if len(e.Event) == 0 || string(e.Event) == "null" {
		return nil, ErrNoInnerEvent
	}
	var ev SlackMessageEvent
	if err := json.Unmarshal(e.Event, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// SlackMessageEvent cubre los campos del evento anidado que usa el relay.
type SlackMessageEvent struct {
	Type        string `json:"type"`
	Subtype     string `json:"subtype,omitempty"`
	ChannelType string `json:"channel_type,omitempty"`
	User        string `json:"user,omitempty"`
	Team        string `json:"team,omitempty"`
	BotID       string `json:"bot_id,omitempty"`
	Text        string `json:"text,omitempty"`
	Channel     string `json:"channel,omitempty"`
	TS          string `json:"ts,omitempty"`
}

// IsEligibleDM reporta si el evento es un mensaje directo escrito por una persona.
func (e *SlackMessageEvent) IsEligibleDM(botUserID string) bool {
	if e == nil {
		return false
	}
	if e.Type != EventTypeMessage || e.Subtype != "" {
		return false
	}
	if e.ChannelType != ChannelTypeIM {
		return false
	}
	if e.User == "" || e.BotID != "" {
		return false
	}
	return botUserID == "" || e.User != botUserID
}
