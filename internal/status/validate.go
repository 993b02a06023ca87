// ABOUTME: JSON-schema validation for inbound client commands
// ABOUTME: Compiles the command schema once and parses raw frames against it

package status

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const commandSchemaURL = "status-gateway://command.json"

const commandSchema = `{
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"type": "string", "minLength": 1, "maxLength": 64},
    "data": {}
  },
  "allOf": [
    {
      "if": {"properties": {"type": {"const": "agent_action"}}},
      "then": {
        "required": ["data"],
        "properties": {
          "data": {
            "type": "object",
            "required": ["agent_id", "action"],
            "properties": {
              "agent_id": {"type": "string", "minLength": 1},
              "action": {"type": "string", "minLength": 1},
              "request_id": {"type": "string"}
            }
          }
        }
      }
    }
  ]
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadCommandSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString(commandSchemaURL, commandSchema)
	})
	return compiledSchema, schemaErr
}

// ParseCommand decodes and validates an inbound client frame.
// Any failure wraps ErrMalformedFrame.
func ParseCommand(data []byte) (Command, error) {
	schema, err := loadCommandSchema()
	if err != nil {
		return Command{}, fmt.Errorf("compile command schema: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := schema.Validate(doc); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return cmd, nil
}
