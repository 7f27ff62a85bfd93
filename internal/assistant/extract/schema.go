// internal/assistant/extract/schema.go
package extract

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Structural schemas for model output. They only pin types, not semantics;
// the normalizers own the semantic repair. A draft that fails here is
// treated like any other unparseable completion.

var eventDraftSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"title":       map[string]interface{}{"type": []string{"string", "null"}},
		"description": map[string]interface{}{"type": []string{"string", "null"}},
		"start_time":  map[string]interface{}{"type": []string{"string", "null"}},
		"end_time":    map[string]interface{}{"type": []string{"string", "null"}},
		"location":    map[string]interface{}{"type": []string{"string", "null"}},
		"calendar_id": map[string]interface{}{"type": []string{"string", "null"}},
		"is_all_day":  map[string]interface{}{"type": []string{"boolean", "null"}},
		"confidence":  map[string]interface{}{"type": []string{"number", "null"}},
		"attendees": map[string]interface{}{
			"type": []string{"array", "null"},
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"email": map[string]interface{}{"type": []string{"string", "null"}},
					"name":  map[string]interface{}{"type": []string{"string", "null"}},
				},
			},
		},
	},
}

var taskDraftSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"title":       map[string]interface{}{"type": []string{"string", "null"}},
		"description": map[string]interface{}{"type": []string{"string", "null"}},
		"priority":    map[string]interface{}{"type": []string{"string", "null"}},
		"due_date":    map[string]interface{}{"type": []string{"string", "null"}},
		"status":      map[string]interface{}{"type": []string{"string", "null"}},
		"calendar_id": map[string]interface{}{"type": []string{"string", "null"}},
		"confidence":  map[string]interface{}{"type": []string{"number", "null"}},
	},
}

func validateDraft(jsonBlock string, schema map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewStringLoader(jsonBlock)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return fmt.Errorf("draft failed schema validation: %s", strings.Join(details, "; "))
	}
	return nil
}
