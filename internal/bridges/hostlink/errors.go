package hostlink

import "errors"

// Errors returned by the inbound handlers. The MQTT client logs them.
var (
	// ErrInvalidTopic is returned for a topic outside the bridge's layout.
	ErrInvalidTopic = errors.New("hostlink: invalid topic")

	// ErrInvalidBlockID is returned when the topic id is not a UUID.
	ErrInvalidBlockID = errors.New("hostlink: invalid block id")

	// ErrInvalidOwnerID is returned when an admin topic's owner is not a UUID.
	ErrInvalidOwnerID = errors.New("hostlink: invalid owner id")

	// ErrUnknownAction is returned for an admin action the bridge does not serve.
	ErrUnknownAction = errors.New("hostlink: unknown admin action")

	// ErrInvalidPayload is returned when a payload cannot be decoded.
	ErrInvalidPayload = errors.New("hostlink: invalid payload")

	// ErrStopped is returned when a notification arrives after Stop or
	// after the loop has shut down.
	ErrStopped = errors.New("hostlink: stopped")
)
