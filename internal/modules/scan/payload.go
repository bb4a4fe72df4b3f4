package scan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// unmarshalLenient decodes a gateway payload into v: the structured parsed
// map when present, then the raw text as JSON, then the first {...}
// substring of the raw text.
func unmarshalLenient(raw string, parsed map[string]interface{}, v interface{}) error {
	if parsed != nil {
		data, err := json.Marshal(parsed)
		if err == nil && json.Unmarshal(data, v) == nil {
			return nil
		}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty payload")
	}
	if json.Unmarshal([]byte(raw), v) == nil {
		return nil
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in payload")
	}
	return json.Unmarshal([]byte(raw[start:end+1]), v)
}
