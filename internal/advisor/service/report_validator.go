package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang-invest-advisor/internal/advisor/config"
	"golang-invest-advisor/internal/advisor/dto"
)

// rawReportPayload mirrors the report schema with pointer fields so a missing
// key is distinguishable from an empty value. Unknown top-level keys are
// rejected by the decoder.
type rawReportPayload struct {
	Ticker          *string   `json:"ticker"`
	Summary         *string   `json:"summary"`
	KeyInsights     *[]string `json:"key_insights"`
	Strengths       *[]string `json:"strengths"`
	Weaknesses      *[]string `json:"weaknesses"`
	Opportunities   *[]string `json:"opportunities"`
	Threats         *[]string `json:"threats"`
	ConfidenceScore *float64  `json:"confidence_score"`
}

// validateReportPayload parses a raw completion response against the report
// schema. List fields must be present but may be empty; confidence_score must
// lie in [0,1]; string fields are bounded in length.
func validateReportPayload(raw string, cfg *config.Advisor) (*dto.ResearchReportPayload, error) {
	// Models wrap JSON in markdown fences despite instructions.
	raw = strings.Trim(raw, "`json\n`")

	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.DisallowUnknownFields()

	var parsed rawReportPayload
	if err := decoder.Decode(&parsed); err != nil {
		return nil, &dto.ValidationError{Reason: fmt.Sprintf("response is not schema-conformant JSON: %v", err)}
	}

	var missing []string
	requireField := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	requireField("ticker", parsed.Ticker != nil)
	requireField("summary", parsed.Summary != nil)
	requireField("key_insights", parsed.KeyInsights != nil)
	requireField("strengths", parsed.Strengths != nil)
	requireField("weaknesses", parsed.Weaknesses != nil)
	requireField("opportunities", parsed.Opportunities != nil)
	requireField("threats", parsed.Threats != nil)
	requireField("confidence_score", parsed.ConfidenceScore != nil)
	if len(missing) > 0 {
		return nil, &dto.ValidationError{Reason: "missing required fields: " + strings.Join(missing, ", ")}
	}

	if *parsed.ConfidenceScore < 0 || *parsed.ConfidenceScore > 1 {
		return nil, &dto.ValidationError{Reason: fmt.Sprintf("confidence_score %.3f outside [0,1]", *parsed.ConfidenceScore)}
	}
	if len(*parsed.Summary) > cfg.SummaryMaxLen {
		return nil, &dto.ValidationError{Reason: fmt.Sprintf("summary exceeds %d characters", cfg.SummaryMaxLen)}
	}

	lists := map[string][]string{
		"key_insights":  *parsed.KeyInsights,
		"strengths":     *parsed.Strengths,
		"weaknesses":    *parsed.Weaknesses,
		"opportunities": *parsed.Opportunities,
		"threats":       *parsed.Threats,
	}
	for name, list := range lists {
		if len(list) > cfg.ListMaxItems {
			return nil, &dto.ValidationError{Reason: fmt.Sprintf("%s exceeds %d items", name, cfg.ListMaxItems)}
		}
		for _, item := range list {
			if len(item) > cfg.ListItemMaxLen {
				return nil, &dto.ValidationError{Reason: fmt.Sprintf("%s item exceeds %d characters", name, cfg.ListItemMaxLen)}
			}
		}
	}

	return &dto.ResearchReportPayload{
		Ticker:          *parsed.Ticker,
		Summary:         *parsed.Summary,
		KeyInsights:     *parsed.KeyInsights,
		Strengths:       *parsed.Strengths,
		Weaknesses:      *parsed.Weaknesses,
		Opportunities:   *parsed.Opportunities,
		Threats:         *parsed.Threats,
		ConfidenceScore: *parsed.ConfidenceScore,
	}, nil
}
