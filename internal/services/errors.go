package services

import "errors"

// Shared sentinel errors so HTTP handlers and the websocket gateway
// map the same condition to the same response kind.
var (
	ErrChatRoomNotFound = errors.New("chat room not found")
	ErrChatRoomExists   = errors.New("chat room already exists for this order")
	ErrChatRoomClosed   = errors.New("chat room is closed")
	ErrAlreadyClosed    = errors.New("chat room is already closed")
	ErrEmptySummary     = errors.New("closing summary is required")
	ErrUserNotFound     = errors.New("user not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrNoAdminAvailable = errors.New("no admin available to handle the order")
	ErrAccessDenied     = errors.New("access denied")
	ErrEmptyContent     = errors.New("message content cannot be empty")
)
