package config

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/marmos91/rankly/internal/bytesize"
)

// Schema returns the JSON schema of the configuration file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
		Mapper:                    schemaMapper,
	}

	schema := reflector.Reflect(&Config{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "rankly configuration"
	schema.Description = "Configuration schema for the rankly prefetch server"

	return json.MarshalIndent(schema, "", "  ")
}

// schemaMapper describes the types that decode hooks accept as strings.
func schemaMapper(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeOf(bytesize.ByteSize(0)):
		return &jsonschema.Schema{
			OneOf: []*jsonschema.Schema{
				{Type: "integer", Minimum: json.Number("0")},
				{Type: "string", Pattern: `^\s*[0-9.]+\s*[a-zA-Z]*\s*$`},
			},
			Description: "Size in bytes, or a string such as 100Mi or 512MB",
		}
	case reflect.TypeOf(time.Duration(0)):
		return &jsonschema.Schema{
			Type:        "string",
			Description: "Duration such as 100ms, 30s or 5m",
		}
	}
	return nil
}
