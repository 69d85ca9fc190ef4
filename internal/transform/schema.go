package transform

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compileSchema builds a validating *jsonschema.Schema from a tool's
// declared input_schema for the post-assembly argument check in
// ValidateToolArguments.
func compileSchema(schema json.RawMessage) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(schema, &doc); err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	const resource = "claudish://tool-input-schema.json"
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile(resource)
}
