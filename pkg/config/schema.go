package config

import (
	"reflect"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/scott-wilson/publish/internal/bytesize"
)

// Schema returns the JSON schema of the configuration file.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
		Mapper:                    schemaType,
	}

	schema := reflector.Reflect(&Config{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "Publish Configuration"
	schema.Description = "Configuration of the publish CLI"
	return schema
}

// schemaType describes types that are written as strings in YAML but would
// otherwise reflect as integers.
func schemaType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeOf(time.Duration(0)):
		return &jsonschema.Schema{
			Type:        "string",
			Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
			Description: `Go duration, e.g. "30s" or "5m"`,
		}
	case reflect.TypeOf(bytesize.ByteSize(0)):
		return &jsonschema.Schema{
			OneOf: []*jsonschema.Schema{
				{Type: "string", Description: `Byte size, e.g. "256MiB" or "1GB"`},
				{Type: "integer", Minimum: "0"},
			},
		}
	}
	return nil
}
