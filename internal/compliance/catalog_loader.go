package compliance

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/catalog.schema.json
var catalogSchemaJSON string

var (
	catalogSchemaOnce sync.Once
	catalogSchema     *jsonschema.Schema
	catalogSchemaErr  error
)

func compiledCatalogSchema() (*jsonschema.Schema, error) {
	catalogSchemaOnce.Do(func() {
		catalogSchema, catalogSchemaErr = jsonschema.CompileString("catalog.schema.json", catalogSchemaJSON)
	})
	return catalogSchema, catalogSchemaErr
}

type catalogDocument struct {
	Profiles []Profile `json:"profiles"`
}

// Load validates a JSON catalog document against the catalog schema and
// registers every profile it contains. Nothing is registered unless every
// profile in the document is valid.
func (c *Catalog) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	schema, err := compiledCatalogSchema()
	if err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	var doc catalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	for i := range doc.Profiles {
		doc.Profiles[i].Program = normalizeProgram(doc.Profiles[i].Program)
		doc.Profiles[i].Track = normalizeTrack(doc.Profiles[i].Track)
		if err := doc.Profiles[i].validate(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(doc.Profiles))
	for _, profile := range doc.Profiles {
		id := fmt.Sprintf("%s/%s@%s", profile.Program, profile.Track, profile.Version)
		if seen[id] {
			return fmt.Errorf("%w: %s listed twice", ErrInvalidCatalog, id)
		}
		seen[id] = true
		if c.hasVersion(profile) {
			return errVersionRegistered(profile)
		}
	}

	for _, profile := range doc.Profiles {
		key := profileKey{program: profile.Program, track: profile.Track}
		c.profiles[key] = append(c.profiles[key], profile.clone())
	}
	return nil
}
