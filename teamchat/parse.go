package teamchat

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// The backend is not consistent about wire shapes: ids arrive as
// "messageId" or "id", text as "messageText" or "text", team and sender
// ids as JSON numbers or strings, and timestamps as epoch millis or an
// ISO-8601 local datetime. All of that is normalized exactly once here;
// the rest of the SDK only ever sees the canonical types.

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexTime decodes an epoch-ms number, an RFC3339 timestamp, or a
// zone-less LocalDateTime string into epoch ms. Zero when absent.
type flexTime int64

func (f *flexTime) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] != '"' {
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = flexTime(int64(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			*f = flexTime(t.UnixMilli())
			return nil
		}
	}
	return &time.ParseError{Layout: time.RFC3339, Value: s}
}

type wireMessage struct {
	MessageID   string     `json:"messageId"`
	ID          string     `json:"id"`
	TeamID      flexString `json:"teamId"`
	SenderID    flexString `json:"senderId"`
	SenderName  string     `json:"senderName"`
	MessageText string     `json:"messageText"`
	Text        string     `json:"text"`
	MessageType string     `json:"messageType"`
	CreatedAt   flexTime   `json:"createdAt"`
}

type wirePresence struct {
	TeamID    flexString `json:"teamId"`
	UserID    flexString `json:"userId"`
	UserName  string     `json:"userName"`
	Action    string     `json:"action"`
	Timestamp flexTime   `json:"timestamp"`
	At        flexTime   `json:"at"`
}

// parseChatMessage decodes an inbound message frame body into the
// canonical ChatMessage. Total: every malformed input maps to a
// CodeParse error; a missing id gets a locally generated fallback so
// the message still renders.
func parseChatMessage(body []byte) (ChatMessage, error) {
	var raw wireMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return ChatMessage{}, WrapError(CodeParse, "malformed message frame", err)
	}
	id := raw.MessageID
	if id == "" {
		id = raw.ID
	}
	if id == "" {
		id = "msg_" + uuid.NewString()
	}
	text := raw.MessageText
	if text == "" {
		text = raw.Text
	}
	createdAt := int64(raw.CreatedAt)
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}
	return ChatMessage{
		ID:          id,
		TeamID:      string(raw.TeamID),
		SenderID:    string(raw.SenderID),
		SenderName:  raw.SenderName,
		Text:        text,
		MessageType: raw.MessageType,
		CreatedAt:   createdAt,
	}, nil
}

// parsePresence decodes an inbound presence frame body.
func parsePresence(body []byte) (PresenceEvent, error) {
	var raw wirePresence
	if err := json.Unmarshal(body, &raw); err != nil {
		return PresenceEvent{}, WrapError(CodeParse, "malformed presence frame", err)
	}
	at := int64(raw.At)
	if at == 0 {
		at = int64(raw.Timestamp)
	}
	return PresenceEvent{
		TeamID:   string(raw.TeamID),
		UserID:   string(raw.UserID),
		UserName: raw.UserName,
		Action:   raw.Action,
		At:       at,
	}, nil
}

// parseRoster decodes the online-roster frame body, a JSON array of
// numeric user ids.
func parseRoster(teamID string, body []byte) (RosterEvent, error) {
	var raw []flexString
	if err := json.Unmarshal(body, &raw); err != nil {
		return RosterEvent{}, WrapError(CodeParse, "malformed roster frame", err)
	}
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, string(id))
	}
	return RosterEvent{TeamID: teamID, UserIDs: ids}, nil
}

// numericTeamID converts the canonical string team id to the numeric
// form frame bodies use.
func numericTeamID(teamID string) (int64, error) {
	n, err := strconv.ParseInt(teamID, 10, 64)
	if err != nil {
		return 0, WrapError(CodeParse, "team id is not numeric: "+teamID, err)
	}
	return n, nil
}
