package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	reflectschema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "scenario.schema.json"

var ErrInvalidDocument = errors.New("scenario: document does not match schema")

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Schema reflects the JSON schema of Document. Field names follow the YAML
// tags so the schema applies to the documents designers actually write.
func Schema() *reflectschema.Schema {
	reflector := reflectschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
		Anonymous:                  true,
	}
	schema := reflector.Reflect(new(Document))
	schema.Title = "Cossacks Scenario"
	schema.Description = "Map, animation catalog and starting agents for a simulation world"
	return schema
}

// SchemaJSON renders Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		data, err := SchemaJSON()
		if err != nil {
			compileErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, bytes.NewReader(data)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Validate checks a YAML (or JSON) scenario document against the schema.
func Validate(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("decode scenario: %w", err)
	}
	if generic == nil {
		return ErrEmptyDocument
	}
	encoded, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}
