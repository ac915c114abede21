package target

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// confSchema constrains the target configuration document beyond what the
// struct decoding can express: the kind enum, per-kind required fields and
// value ranges.
const confSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["target-conf"],
  "properties": {
    "target-conf": {
      "type": "object",
      "required": ["kind"],
      "properties": {
        "kind": {"enum": ["android", "linux", "host"]},
        "name": {"type": "string"},
        "host": {"type": "string"},
        "port": {"type": "integer", "minimum": 1, "maximum": 65535},
        "username": {"type": "string"},
        "password": {"type": "string"},
        "keyfile": {"type": "string"},
        "device": {"type": "string"},
        "platform-info": {"type": "string"},
        "ftrace": {
          "type": "object",
          "properties": {
            "events": {"type": "array", "items": {"type": "string"}},
            "functions": {"type": "array", "items": {"type": "string"}},
            "buffer-size": {"type": "integer", "minimum": 1}
          },
          "additionalProperties": false
        }
      },
      "additionalProperties": false,
      "allOf": [
        {
          "if": {"properties": {"kind": {"const": "linux"}}},
          "then": {"required": ["host", "username"]}
        }
      ]
    }
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("target-conf.json", strings.NewReader(confSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("target-conf.json")
}

// Validate checks a raw YAML target configuration document against the
// schema and reports every violation with its document path.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse target config: %w", err)
	}
	if err := compiledSchema.Validate(normalizeYAML(doc)); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return formatValidationError(validationErr)
		}
		return fmt.Errorf("target config validation failed: %w", err)
	}
	return nil
}

func formatValidationError(err *jsonschema.ValidationError) error {
	var msgs []string
	var collect func(*jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			collect(c)
		}
	}
	collect(err)
	return fmt.Errorf("target config validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// normalizeYAML converts the YAML decoder's map types into what the schema
// validator accepts.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalizeYAML(t[i])
		}
		return t
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	default:
		return v
	}
}
