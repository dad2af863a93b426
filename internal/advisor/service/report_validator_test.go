package service

import (
	"testing"

	"golang-invest-advisor/internal/advisor/dto"

	"github.com/stretchr/testify/assert"
)

func TestValidateReportPayload(t *testing.T) {
	cfg := &newTestConfig().Advisor

	tests := []struct {
		name      string
		raw       string
		expectErr string
	}{
		{
			name: "valid payload",
			raw:  validReportJSON,
		},
		{
			name: "markdown fenced payload",
			raw:  "```json\n" + validReportJSON + "\n```",
		},
		{
			name:      "missing list field",
			raw:       `{"ticker":"AAPL","summary":"ok","key_insights":[],"strengths":[],"weaknesses":[],"opportunities":[],"confidence_score":0.5}`,
			expectErr: "threats",
		},
		{
			name:      "unknown field",
			raw:       `{"ticker":"AAPL","summary":"ok","key_insights":[],"strengths":[],"weaknesses":[],"opportunities":[],"threats":[],"confidence_score":0.5,"rating":"buy"}`,
			expectErr: "schema-conformant",
		},
		{
			name:      "confidence above one",
			raw:       `{"ticker":"AAPL","summary":"ok","key_insights":[],"strengths":[],"weaknesses":[],"opportunities":[],"threats":[],"confidence_score":1.5}`,
			expectErr: "confidence_score",
		},
		{
			name:      "confidence below zero",
			raw:       `{"ticker":"AAPL","summary":"ok","key_insights":[],"strengths":[],"weaknesses":[],"opportunities":[],"threats":[],"confidence_score":-0.1}`,
			expectErr: "confidence_score",
		},
		{
			name:      "prose instead of json",
			raw:       "AAPL looks like a solid buy right now.",
			expectErr: "schema-conformant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := validateReportPayload(tt.raw, cfg)
			if tt.expectErr == "" {
				assert.NoError(t, err)
				assert.Equal(t, "AAPL", payload.Ticker)
				assert.NotNil(t, payload.KeyInsights)
				return
			}
			var validationErr *dto.ValidationError
			assert.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Reason, tt.expectErr)
		})
	}
}

func TestValidateReportPayloadListBounds(t *testing.T) {
	cfg := &newTestConfig().Advisor
	cfg.ListMaxItems = 1

	raw := `{"ticker":"AAPL","summary":"ok","key_insights":["a","b"],"strengths":[],"weaknesses":[],"opportunities":[],"threats":[],"confidence_score":0.5}`
	_, err := validateReportPayload(raw, cfg)

	var validationErr *dto.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "key_insights")
}
