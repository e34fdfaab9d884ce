package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is the outer frame shared by every message.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is a decoded client frame. Payload holds the typed struct for
// Type, one of AuthRequest, SubscribeRequest, UnsubscribeRequest,
// BlockEvent, GroupEvent or ChangeIndex.
type Message struct {
	Type    Type
	Payload any
}

// Decode parses a client frame.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var (
		payload any
		err     error
	)
	switch env.Type {
	case TypeAuthReq:
		payload, err = decodePayload[AuthRequest](env.Payload)
	case TypeSubscribe:
		payload, err = decodePayload[SubscribeRequest](env.Payload)
	case TypeUnsubscribe:
		payload, err = decodePayload[UnsubscribeRequest](env.Payload)
	case TypeBlockState, TypeBlockPower, TypeRenameBlock, TypeUnregisterBlock, TypeChangeBlockGroup:
		payload, err = decodePayload[BlockEvent](env.Payload)
	case TypeCreateGroup, TypeRenameGroup, TypeDeleteGroup:
		payload, err = decodePayload[GroupEvent](env.Payload)
	case TypeChangeBlockIndex, TypeChangeGroupIndex:
		payload, err = decodePayload[ChangeIndex](env.Payload)
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err != nil {
		return Message{}, fmt.Errorf("%w: %s payload: %w", ErrMalformed, env.Type, err)
	}

	return Message{Type: env.Type, Payload: payload}, nil
}

// decodePayload unmarshals raw into a T. An absent or null payload yields the zero value.
func decodePayload[T any](raw json.RawMessage) (T, error) {
	var v T
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

// Encode marshals an outbound frame.
func Encode(t Type, payload any) ([]byte, error) {
	data, err := json.Marshal(struct {
		Type    Type `json:"type"`
		Payload any  `json:"payload"`
	}{t, payload})
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", t, err)
	}
	return data, nil
}

// NewServerError describes err for a SERVER_ERROR frame. Trace lists the
// wrapped error chain, outermost first.
func NewServerError(err error) ServerError {
	out := ServerError{Message: err.Error(), Trace: []string{}}
	queue := []error{err}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		out.Trace = append(out.Trace, e.Error())

		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			queue = append(queue, u.Unwrap()...)
		default:
			if next := errors.Unwrap(e); next != nil {
				queue = append(queue, next)
			}
		}
	}
	return out
}
