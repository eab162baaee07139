package contracts

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/schemas"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const eventsRoot = "events"

// Registry хранит скомпилированные схемы событий по ключу "<EventName>/<version>"
type Registry struct {
	schemas map[string]*jsonschema.Schema
}

// NewRegistry компилирует встроенные схемы
func NewRegistry() (*Registry, error) {
	return NewRegistryFromFS(schemas.SchemasFS)
}

// NewRegistryFromFS компилирует все схемы из каталога events в fsys
func NewRegistryFromFS(fsys fs.FS) (*Registry, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	var paths []string
	err := fs.WalkDir(fsys, eventsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		file, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		// ресурсы добавляются до компиляции, чтобы работали $ref между схемами
		if err := compiler.AddResource(path, file); err != nil {
			return fmt.Errorf("failed to add schema resource %s: %w", path, err)
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("contracts: %w", err)
	}

	r := &Registry{schemas: make(map[string]*jsonschema.Schema, len(paths))}
	for _, path := range paths {
		key := keyFromPath(path)
		if key == "" {
			return nil, fmt.Errorf("contracts: unexpected schema path %s", path)
		}
		schema, err := compiler.Compile(path)
		if err != nil {
			return nil, fmt.Errorf("contracts: failed to compile %s: %w", path, err)
		}
		r.schemas[key] = schema
	}
	return r, nil
}

// keyFromPath: "events/listing-saved/v1.json" -> "ListingSavedEvent/1.0.0"
func keyFromPath(path string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, eventsRoot+"/"), ".json")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || !strings.HasPrefix(parts[1], "v") {
		return ""
	}

	caser := cases.Title(language.English)
	var name strings.Builder
	for _, p := range strings.Split(parts[0], "-") {
		name.WriteString(caser.String(p))
	}
	name.WriteString("Event")

	return fmt.Sprintf("%s/%s.0.0", name.String(), strings.TrimPrefix(parts[1], "v"))
}

// Has сообщает, зарегистрирована ли схема
func (r *Registry) Has(eventType, version string) bool {
	_, ok := r.schemas[eventType+"/"+version]
	return ok
}

// ValidateEvent проверяет тело сообщения по схеме события
func (r *Registry) ValidateEvent(eventType, version string, body []byte) error {
	schema, ok := r.schemas[eventType+"/"+version]
	if !ok {
		return fmt.Errorf("schema for event '%s' version '%s' not found", eventType, version)
	}

	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("message body is not a valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}
