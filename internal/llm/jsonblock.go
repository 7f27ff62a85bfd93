// internal/llm/jsonblock.go
package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSONBlock = errors.New("no JSON object found in model output")

// ExtractJSONBlock finds the first balanced {...} block in model output and
// returns it. Models routinely wrap JSON in prose or markdown fences; this
// tolerates both. Braces inside JSON strings are skipped.
func ExtractJSONBlock(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errNoJSONBlock
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", errNoJSONBlock
}

// DecodeJSONBlock extracts the first balanced JSON object and unmarshals it
// into v.
func DecodeJSONBlock(text string, v interface{}) error {
	block, err := ExtractJSONBlock(text)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(block), v)
}
