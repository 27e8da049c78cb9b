package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParseAnalysis marks a model response that could not be decoded into a
// SignalAnalysis even after unwrapping.
var ErrParseAnalysis = errors.New("parse analysis response")

// ParseAnalysis decodes a model response into a SignalAnalysis. It tolerates
// markdown code fences and surrounding prose, then sanitizes the result so
// downstream code only sees contractual values.
func ParseAnalysis(text string, currentPrice float64) (*SignalAnalysis, error) {
	cleaned := strings.TrimSpace(text)

	// Remove markdown code fences
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var analysis SignalAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		// Try to extract a JSON object embedded in the text
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: %.200s", ErrParseAnalysis, cleaned)
		}
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &analysis); err != nil {
			return nil, fmt.Errorf("%w: %.200s", ErrParseAnalysis, cleaned)
		}
	}

	sanitize(&analysis, currentPrice)
	return &analysis, nil
}

func sanitize(a *SignalAnalysis, currentPrice float64) {
	switch a.SignalType {
	case "BUY", "SELL", "HOLD":
	default:
		a.SignalType = "HOLD"
	}

	if a.Confidence < 0 {
		a.Confidence = 0
	}
	if a.Confidence > 100 {
		a.Confidence = 100
	}

	if a.EntryPrice == 0 {
		a.EntryPrice = currentPrice
	}
	if len(a.Reasons) == 0 {
		a.Reasons = []string{"Automated technical analysis"}
	}
}
