package teamchat

// ChatMessage is the canonical, already-normalized form of a team chat
// message. Identity is ID; it must stay unique across the union of
// REST-loaded history and live-streamed messages.
type ChatMessage struct {
	ID          string `json:"id"`
	TeamID      string `json:"teamId"`
	SenderID    string `json:"senderId"`
	SenderName  string `json:"senderName,omitempty"`
	Text        string `json:"text"`
	MessageType string `json:"messageType,omitempty"` // TEXT, IMAGE, FILE, SYSTEM
	CreatedAt   int64  `json:"createdAt"`             // epoch ms
}

// PresenceEvent signals that a user joined or left a team chat session.
// Transient; drives ephemeral UI cues, never stored in the chat log.
type PresenceEvent struct {
	TeamID   string `json:"teamId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	Action   string `json:"action"` // "join" or "leave"
	At       int64  `json:"at"`     // epoch ms
}

// RosterEvent carries the current list of online users for a team.
type RosterEvent struct {
	TeamID  string
	UserIDs []string
}

const (
	ActionJoin  = "join"
	ActionLeave = "leave"
)

const messageTypeText = "TEXT"

// Outbound destinations (application prefix) and inbound topics, scoped
// per team. Team ids travel as numbers in frame bodies but as path
// segments in destinations.
func destJoin(teamID string) string   { return "/app/chat.join." + teamID }
func destLeave(teamID string) string  { return "/app/chat.leave." + teamID }
func destSend(teamID string) string   { return "/app/chat.send." + teamID }
func destOnline(teamID string) string { return "/app/chat.online." + teamID }
func destDelete(teamID string) string { return "/app/chat.delete." + teamID }

func topicMessages(teamID string) string { return "/topic/team/" + teamID }
func topicPresence(teamID string) string { return "/topic/team/" + teamID + "/presence" }
func topicOnline(teamID string) string   { return "/topic/team/" + teamID + "/online" }

// controlPayload is the body of join/leave/online control frames.
type controlPayload struct {
	TeamID int64 `json:"teamId"`
}

// sendPayload is the body of an outbound chat message.
type sendPayload struct {
	TeamID      int64  `json:"teamId"`
	MessageText string `json:"messageText"`
	MessageType string `json:"messageType"`
}
