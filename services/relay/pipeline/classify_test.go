package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftwood-ai/chatrelay/services/llm"
)

// =============================================================================
// Decision table
// =============================================================================

func TestClassify_DecisionTable(t *testing.T) {
	tests := []struct {
		name    string
		failure *llm.Failure
		want    string
	}{
		{
			name:    "429 with request limit code",
			failure: llm.NewFailure(429, "limit_requests", "Too many requests"),
			want:    MsgRateLimited,
		},
		{
			name:    "429 with quota code",
			failure: llm.NewFailure(429, "insufficient_quota", "Quota exceeded"),
			want:    MsgQuotaExhausted,
		},
		{
			name:    "429 with any other code",
			failure: llm.NewFailure(429, "overloaded", "Try again"),
			want:    MsgModelBusy,
		},
		{
			name:    "403 regardless of code",
			failure: llm.NewFailure(403, "", "Forbidden"),
			want:    MsgFreeTierSpent,
		},
		{
			name:    "free tier code regardless of status",
			failure: llm.NewFailure(200, "AllocationQuota.FreeTierOnly", ""),
			want:    MsgFreeTierSpent,
		},
		{
			name: "400 invalid parameter with length complaint",
			failure: llm.NewFailure(400, "invalid_parameter_error",
				"Range of input length should be [1, 6000]"),
			want: MsgInputTooLong,
		},
		{
			name:    "400 invalid parameter otherwise",
			failure: llm.NewFailure(400, "invalid_parameter_error", "bad temperature"),
			want:    MsgBadRequest,
		},
		{
			name:    "connection refused",
			failure: &llm.Failure{Transport: llm.TransportConnRefused},
			want:    MsgUnreachable,
		},
		{
			name:    "dns failure",
			failure: &llm.Failure{Transport: llm.TransportDNS},
			want:    MsgUnresolvable,
		},
		{
			name:    "anything else",
			failure: llm.NewFailure(500, "internal", "boom"),
			want:    MsgDefault,
		},
		{
			name:    "nil failure",
			failure: nil,
			want:    MsgDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.failure))
		})
	}
}

// =============================================================================
// Ordering and totality
// =============================================================================

func TestClassify_RateLimitRowWinsOverGenericRateLimit(t *testing.T) {
	// A failure matching the first row must never fall through to the
	// catch-all 429 row.
	f := llm.NewFailure(429, "limit_requests", "whatever the backend says")
	assert.Equal(t, MsgRateLimited, Classify(f))
	assert.Equal(t, MsgRateLimited, Classify(llm.NewFailure(429, "limit_requests", "different text")),
		"same row condition always maps to the same message")
}

func TestClassify_AlwaysReturnsAMessage(t *testing.T) {
	statuses := []int{0, 200, 400, 401, 403, 404, 429, 500, 502, 503}
	codes := []string{"", "limit_requests", "insufficient_quota",
		"AllocationQuota.FreeTierOnly", "invalid_parameter_error", "unknown_code"}
	transports := []llm.TransportKind{llm.TransportNone, llm.TransportConnRefused,
		llm.TransportDNS, llm.TransportOther}

	for _, status := range statuses {
		for _, code := range codes {
			for _, transport := range transports {
				f := &llm.Failure{StatusCode: status, Code: code, Transport: transport}
				assert.NotEmpty(t, Classify(f),
					"status=%d code=%q transport=%d", status, code, transport)
				assert.NotEmpty(t, Category(f))
			}
		}
	}
}
