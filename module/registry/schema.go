package registry

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const registrySchemaURL = "https://nitro-repo.dev/schemas/storages.json"

const registrySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["storage_type", "generic_config"],
    "properties": {
      "storage_type": {"type": "string", "minLength": 1},
      "generic_config": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "created": {"type": "integer"}
        }
      },
      "handler_config": {}
    }
  }
}`

var compiledRegistrySchema = mustCompileRegistrySchema()

func mustCompileRegistrySchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(registrySchema))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(registrySchemaURL, doc); err != nil {
		panic(err)
	}
	return c.MustCompile(registrySchemaURL)
}

// validateRegistry checks the registry file against the StorageSaver list schema.
func validateRegistry(data []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse storage registry: %w", err)
	}
	if err := compiledRegistrySchema.Validate(inst); err != nil {
		return fmt.Errorf("invalid storage registry: %w", err)
	}
	return nil
}
