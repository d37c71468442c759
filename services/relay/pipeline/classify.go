// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"net/http"
	"strings"

	"github.com/driftwood-ai/chatrelay/services/llm"
)

// User-facing messages for every failure category. Kept as constants so the
// websocket layer, metrics labels, and tests all agree on the exact text.
const (
	MsgRateLimited    = "The AI model is receiving too many requests. Please retry shortly or ask an administrator to raise the request limit."
	MsgQuotaExhausted = "The AI model call quota has been exhausted. Please retry later or ask an administrator to increase the quota."
	MsgModelBusy      = "The AI model service is temporarily unavailable. Please retry shortly."
	MsgFreeTierSpent  = "The AI model's free allocation has been used up. Please contact an administrator to upgrade the service."
	MsgInputTooLong   = "Your request is too long. Please shorten the question or reduce the amount of input."
	MsgBadRequest     = "The request parameters were rejected. Please check your input and try again."
	MsgUnreachable    = "Could not connect to the AI service. Please check the network connection."
	MsgUnresolvable   = "The AI service address could not be resolved. Please retry later."
	MsgDefault        = "The service is temporarily unavailable. Please retry later."
)

const (
	codeLimitRequests     = "limit_requests"
	codeInsufficientQuota = "insufficient_quota"
	codeFreeTierOnly      = "AllocationQuota.FreeTierOnly"
	codeInvalidParameter  = "invalid_parameter_error"

	inputLengthFragment = "Range of input length should be"
)

// Classify maps a downstream failure to the message shown to the user. The
// table is checked in order and the first match wins; it is total, so every
// failure yields a non-empty message and nothing propagates unclassified.
func Classify(f *llm.Failure) string {
	if f == nil {
		return MsgDefault
	}

	switch {
	case f.StatusCode == http.StatusTooManyRequests && f.Code == codeLimitRequests:
		return MsgRateLimited
	case f.StatusCode == http.StatusTooManyRequests && f.Code == codeInsufficientQuota:
		return MsgQuotaExhausted
	case f.StatusCode == http.StatusTooManyRequests:
		return MsgModelBusy
	case f.StatusCode == http.StatusForbidden || f.Code == codeFreeTierOnly:
		return MsgFreeTierSpent
	case f.StatusCode == http.StatusBadRequest && f.Code == codeInvalidParameter &&
		strings.Contains(f.Message, inputLengthFragment):
		return MsgInputTooLong
	case f.StatusCode == http.StatusBadRequest && f.Code == codeInvalidParameter:
		return MsgBadRequest
	case f.Transport == llm.TransportConnRefused:
		return MsgUnreachable
	case f.Transport == llm.TransportDNS:
		return MsgUnresolvable
	default:
		return MsgDefault
	}
}

// Category names the classifier row a failure landed on, for metrics labels.
func Category(f *llm.Failure) string {
	switch Classify(f) {
	case MsgRateLimited:
		return "rate_limited"
	case MsgQuotaExhausted:
		return "quota_exhausted"
	case MsgModelBusy:
		return "model_busy"
	case MsgFreeTierSpent:
		return "free_tier_spent"
	case MsgInputTooLong:
		return "input_too_long"
	case MsgBadRequest:
		return "bad_request"
	case MsgUnreachable:
		return "unreachable"
	case MsgUnresolvable:
		return "unresolvable"
	default:
		return "unclassified"
	}
}
