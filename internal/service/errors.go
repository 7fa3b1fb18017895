package service

import "errors"

var (
	ErrRoomNotFound           = errors.New("room not found")
	ErrUserNotInRoom          = errors.New("user is not in the room")
	ErrRoomFull               = errors.New("room is full")
	ErrAlreadyInRoom          = errors.New("user already in another room")
	ErrConversationInProgress = errors.New("conversation already started")
	ErrBlacklisted            = errors.New("user is blacklisted from this room")

	ErrUserNotFound         = errors.New("user not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrInternalServer       = errors.New("internal server error")
)
