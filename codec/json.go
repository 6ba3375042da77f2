package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// Numbers decode into float64 when the target is an interface value, so
// integers above 2^53 lose precision on the way back. Use a custom Codec if
// metadata carries such identifiers.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the metadata codec used when none is configured.
var Default Codec = GoJSON{}
