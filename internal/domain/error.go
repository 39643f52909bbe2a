package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")

	// Inbound pipeline errors
	ErrDuplicateEvent    = errors.New("event already claimed")
	ErrConversationBusy  = errors.New("conversation is locked by another event")
	ErrInvalidSignature  = errors.New("webhook signature mismatch")
	ErrPayloadTooLarge   = errors.New("webhook payload exceeds size ceiling")
	ErrRateLimited       = errors.New("dispatch rate limit exceeded")
	ErrHookNotRegistered = errors.New("job hook not registered")
	ErrClaimStoreOffline = errors.New("event claim store unreachable")
)
