package manifest

import (
	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the manifest format.
func Schema() *jsonschema.Schema {
	// Entry is recursive, so definitions stay referenced.
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		FieldNameTag:              "yaml",
	}

	schema := reflector.Reflect(&Manifest{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "Publish Manifest"
	schema.Description = "Stages and transactions of a publish"
	return schema
}
