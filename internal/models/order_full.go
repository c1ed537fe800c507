package models

// OrderFull is the read shape for order endpoints: the order plus its
// paired chat room and the owner's public summary.
type OrderFull struct {
	Order    Order       `json:"order"`
	ChatRoom *ChatRoom   `json:"chatRoom,omitempty"`
	User     UserSummary `json:"user"`
}
