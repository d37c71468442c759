// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides the wire types exchanged over the chat relay's
// websocket and admin endpoints.
package datatypes

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// TypeChat carries a user message inbound or a rewritten reply outbound.
	TypeChat = "chat"

	// TypeError is outbound only: a classified failure message.
	TypeError = "error"

	// TypeReloadPrompt asks the relay to re-read the system prompt file.
	// Inbound only, admin clients.
	TypeReloadPrompt = "reload-prompt"

	// MaxContentBytes caps a single inbound message. Byte length, not rune
	// count, so oversized payloads are rejected before any allocation
	// downstream.
	MaxContentBytes = 32 * 1024
)

var (
	ErrEmptyContent    = errors.New("content required")
	ErrContentTooLarge = errors.New("content too large")
	ErrUnknownType     = errors.New("unsupported message type")
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

var envelopeValidate *validator.Validate

func init() {
	envelopeValidate = validator.New()
	_ = envelopeValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxContentBytes
}

// =============================================================================
// Envelope
// =============================================================================

// Envelope is the single message shape used in both directions on the chat
// websocket.
//
// # Fields
//
//   - Type: one of TypeChat, TypeError, TypeReloadPrompt. Inbound envelopes
//     may only carry TypeChat or TypeReloadPrompt; TypeError is produced by
//     the server.
//   - Content: the user text or reply text. Required for TypeChat, capped at
//     MaxContentBytes; ignored for TypeReloadPrompt.
type Envelope struct {
	Type    string `json:"type"`
	Content string `json:"content" validate:"maxbytes"`
}

// ValidateInbound checks an envelope received from a client. The returned
// errors are safe to echo back to the connection verbatim.
func (e *Envelope) ValidateInbound() error {
	if err := envelopeValidate.Struct(e); err != nil {
		return ErrContentTooLarge
	}
	switch e.Type {
	case TypeChat:
		if e.Content == "" {
			return ErrEmptyContent
		}
		return nil
	case TypeReloadPrompt:
		return nil
	default:
		return ErrUnknownType
	}
}

// ChatReply builds the outbound envelope for a successful turn.
func ChatReply(content string) Envelope {
	return Envelope{Type: TypeChat, Content: content}
}

// ErrorReply builds the outbound envelope for a failed or rejected turn.
func ErrorReply(message string) Envelope {
	return Envelope{Type: TypeError, Content: message}
}
