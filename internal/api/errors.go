package api

import (
	"bytes"
	"encoding/json"
	"strings"
)

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message any             `json:"message"`
}

// extractErrorMessage picks the most useful message out of an error body.
// Order: detail string, detail list (each item's msg joined by " | ", else the
// list as JSON), detail object as JSON, message, fallback.
func extractErrorMessage(data []byte, fallback string) string {
	if len(bytes.TrimSpace(data)) == 0 {
		return fallback
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return fallback
	}

	detail := bytes.TrimSpace(body.Detail)
	if len(detail) > 0 {
		switch detail[0] {
		case '"':
			var s string
			if err := json.Unmarshal(detail, &s); err == nil && strings.TrimSpace(s) != "" {
				return s
			}
		case '[':
			var items []json.RawMessage
			if err := json.Unmarshal(detail, &items); err == nil && len(items) > 0 {
				var msgs []string
				for _, item := range items {
					var entry struct {
						Msg any `json:"msg"`
					}
					if json.Unmarshal(item, &entry) != nil {
						continue
					}
					if m, ok := entry.Msg.(string); ok && strings.TrimSpace(m) != "" {
						msgs = append(msgs, m)
					}
				}
				if len(msgs) > 0 {
					return strings.Join(msgs, " | ")
				}
				return compactJSON(detail)
			}
		case '{':
			return compactJSON(detail)
		}
	}

	if m, ok := body.Message.(string); ok && strings.TrimSpace(m) != "" {
		return m
	}
	return fallback
}

func compactJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
