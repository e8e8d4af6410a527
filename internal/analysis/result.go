package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"docsweep/pkg/models"
)

// Result is the structured answer embedded in the service response.
type Result struct {
	SuggestedName   Text `json:"nome_sugerido"`
	Summary         Text `json:"resumo"`
	Category        Text `json:"categoria"`
	DestinationPath Text `json:"caminho_destino"`
	Tags            Tags `json:"tags"`
	DocumentType    Text `json:"tipo_documento"`
	DuplicateOf     Text `json:"duplicado_de"`
}

// Record turns the answer into a ledger record for sourceName analyzed at at.
// An empty suggestion falls back to the source file name.
func (r *Result) Record(sourceName string, at time.Time) models.AnalysisRecord {
	name := strings.TrimSpace(string(r.SuggestedName))
	if name == "" {
		name = sourceName
	}
	return models.AnalysisRecord{
		SuggestedName:   name,
		Summary:         string(r.Summary),
		Category:        string(r.Category),
		DestinationPath: string(r.DestinationPath),
		Tags:            []string(r.Tags),
		DocumentType:    string(r.DocumentType),
		DuplicateOf:     string(r.DuplicateOf),
		AnalyzedAt:      at,
		SourceFileName:  sourceName,
	}
}

// Text is a string field that also accepts null, numbers, booleans and lists of
// strings, which models return now and then.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case len(data) > 0 && data[0] == '[':
		var parts []Text
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		joined := make([]string, 0, len(parts))
		for _, p := range parts {
			if p != "" {
				joined = append(joined, string(p))
			}
		}
		*t = Text(strings.Join(joined, " "))
	case len(data) > 0 && data[0] == '{':
		return fmt.Errorf("expected text, got object")
	default:
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		switch x := v.(type) {
		case float64:
			*t = Text(strconv.FormatFloat(x, 'f', -1, 64))
		case bool:
			*t = Text(strconv.FormatBool(x))
		}
	}
	return nil
}

// Tags accepts a JSON list or a single comma separated string.
type Tags []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}

	var list []Text
	if err := json.Unmarshal(data, &list); err == nil {
		tags := make(Tags, 0, len(list))
		for _, item := range list {
			if s := strings.TrimSpace(string(item)); s != "" {
				tags = append(tags, s)
			}
		}
		*t = tags
		return nil
	}

	var single Text
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("expected tag list: %w", err)
	}
	var tags Tags
	for _, s := range strings.Split(string(single), ",") {
		if s = strings.TrimSpace(s); s != "" {
			tags = append(tags, s)
		}
	}
	*t = tags
	return nil
}

// parsePayload is the second parse stage: the text found in the envelope must hold
// one JSON object, optionally wrapped in a markdown code fence.
func parsePayload(op, text string) (*Result, error) {
	cleaned := stripCodeFence(text)
	if cleaned == "" {
		return nil, newAnalysisError(op, ErrMalformedPayload, nil, "empty answer")
	}
	if !strings.HasPrefix(cleaned, "{") {
		return nil, newAnalysisError(op, ErrMalformedPayload, nil, "answer is not a JSON object: "+truncate(cleaned, 120))
	}

	var result Result
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, newAnalysisError(op, ErrMalformedPayload, err, truncate(cleaned, 120))
	}
	return &result, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block.
func stripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```")
	if i := strings.IndexAny(cleaned, "{\n"); i >= 0 && cleaned[i] == '\n' {
		cleaned = cleaned[i+1:]
	} else {
		cleaned = strings.TrimPrefix(cleaned, "json")
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
