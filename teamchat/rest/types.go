package rest

// chatMessageDTO mirrors the backend's team chat history response.
// Field shapes are looser on the wire than in the canonical model
// (numeric ids, zone-less timestamps); mapping happens in the client.
type chatMessageDTO struct {
	MessageID   string `json:"messageId"`
	TeamID      int64  `json:"teamId"`
	SenderID    int64  `json:"senderId"`
	SenderName  string `json:"senderName"`
	MessageText string `json:"messageText"`
	MessageType string `json:"messageType"`
	CreatedAt   string `json:"createdAt"`
	IsDeleted   bool   `json:"isDeleted"`
}

// TeamInfo is the subset of team metadata the chat demos need.
type TeamInfo struct {
	ID          int64  `json:"teamId"`
	Name        string `json:"teamName"`
	MemberCount int    `json:"memberCount"`
}

// ErrorResponse is the backend's error body.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
