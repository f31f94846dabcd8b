package contracts

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema names
const (
	Profile  = "profile"
	Document = "document"
)

var compiledSchemas = make(map[string]*jsonschema.Schema)

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		log.Fatalf("failed to read embedded schemas: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := "schemas/" + e.Name()
		file, err := schemaFS.Open(path)
		if err != nil {
			log.Fatalf("failed to open schema %s: %v", path, err)
		}
		err = compiler.AddResource(path, file)
		file.Close()
		if err != nil {
			log.Fatalf("failed to add schema resource %s: %v", path, err)
		}
		schema, err := compiler.Compile(path)
		if err != nil {
			log.Fatalf("failed to compile schema %s: %v", path, err)
		}
		compiledSchemas[strings.TrimSuffix(e.Name(), ".json")] = schema
	}
}

// Validate checks an already decoded JSON value against a named schema
func Validate(name string, v any) error {
	schema, ok := compiledSchemas[name]
	if !ok {
		return fmt.Errorf("schema %q not found", name)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}

// ValidateJSON decodes body and validates it
func ValidateJSON(name string, body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("body is not valid JSON: %w", err)
	}
	return Validate(name, v)
}
