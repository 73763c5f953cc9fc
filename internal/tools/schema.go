package tools

import "github.com/invopop/jsonschema"

// SchemaFor reflects the JSON schema of T for use as tool parameters.
// Fields without omitempty are required.
func SchemaFor[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	schema.Version = ""
	schema.ID = ""
	return schema
}
