package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// sequenceSchema is the contract the sequencing vendor must meet. Anything
// that fails it triggers the deterministic fallback instead of propagating
// an unchecked shape into planning.
const sequenceSchema = `{
  "type": "object",
  "required": ["elements"],
  "properties": {
    "elements": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "kind", "start_time", "duration"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "kind": {"type": "string", "enum": ["image", "video"]},
          "start_time": {"type": "number", "minimum": 0},
          "duration": {"type": "number", "exclusiveMinimum": 0}
        }
      }
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiledSequenceSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, compileErr = compiler.Compile([]byte(sequenceSchema))
	})
	return compiledSchema, compileErr
}

// parseSequenceResponse validates the vendor's raw response against the
// schema and returns the typed elements.
func parseSequenceResponse(raw string) ([]TimelineElement, error) {
	content := cleanJSON(raw)

	var untyped map[string]interface{}
	if err := json.Unmarshal([]byte(content), &untyped); err != nil {
		return nil, fmt.Errorf("vendor response is not valid JSON: %w", err)
	}

	schema, err := compiledSequenceSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile sequence schema: %w", err)
	}

	result := schema.Validate(untyped)
	if !result.IsValid() {
		var errorMessages []string
		for field, evalErr := range result.Errors {
			errorMessages = append(errorMessages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
		}
		return nil, fmt.Errorf("vendor response failed validation: %s", strings.Join(errorMessages, "; "))
	}

	var parsed struct {
		Elements []TimelineElement `json:"elements"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode validated response: %w", err)
	}

	return parsed.Elements, nil
}

// cleanJSON strips markdown fences if the vendor wraps its response in
// ```json ... ```
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
