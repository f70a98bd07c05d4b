package descriptor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://jurismap.schemas.local/descriptor.schema.json"

const descriptorSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["jurisdictions"],
  "properties": {
    "jurisdictions": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {
          "type": "array",
          "minItems": 3,
          "prefixItems": [
            {"type": "string", "minLength": 1},
            {"type": "string"},
            {"type": ["integer", "null"], "minimum": 0}
          ],
          "items": {"type": "integer", "minimum": 0}
        }
      }
    },
    "courts": {
      "type": "array",
      "items": {
        "type": "array",
        "minItems": 2,
        "prefixItems": [
          {"type": "string", "minLength": 1},
          {"type": "string"}
        ]
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(descriptorSchema)); err != nil {
			schemaErr = fmt.Errorf("descriptor schema load failed: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("descriptor schema compile failed: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// validateSchema checks a generically decoded descriptor document.
func validateSchema(doc any) error {
	s, err := schema()
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
