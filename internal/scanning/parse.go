package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

type transcription struct {
	Lines []string `json:"lines"`
}

// parseTranscriptionJSON parses a vision model's line-by-line transcription
func parseTranscriptionJSON(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var data transcription
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	lines := make([]string, 0, len(data.Lines))
	for _, l := range data.Lines {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, ErrNoText
	}

	return &Result{Text: strings.Join(lines, "\n")}, nil
}
