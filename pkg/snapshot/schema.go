package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

const schemaID = "https://github.com/ormasoftchile/paramsnap/schemas/snapshot-v0.json"

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document from the
// Snapshot struct. Additional properties are allowed: points written by other
// tooling carry extra members such as IsValid.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false
	r.AllowAdditionalProperties = true

	s := r.Reflect(&Snapshot{})
	s.ID = schemaID
	s.Title = "Parameter Snapshot v0"
	s.Description = "Slider banks, flattened slider values and points persisted by paramsnap"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
