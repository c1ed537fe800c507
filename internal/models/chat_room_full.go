package models

// ChatRoomFull is the read shape for chat room endpoints. Participant
// data is limited to public summaries; password and token material
// never leave the store through this path.
type ChatRoomFull struct {
	ChatRoom ChatRoom    `json:"chatRoom"`
	Order    *Order      `json:"order,omitempty"`
	Admin    UserSummary `json:"admin"`
	User     UserSummary `json:"user"`
	Messages []Message   `json:"messages,omitempty"`
}
