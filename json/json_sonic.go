//go:build amd64

package json

import "github.com/bytedance/sonic"

var (
	json = sonic.Config{
		NoValidateJSONMarshaler: true,
		NoValidateJSONSkip:      true,
		NoEncoderNewline:        true,
		EncodeNullForInfOrNan:   true,
	}.Froze()
	// Unmarshal is exported by gin/json package.
	Unmarshal = json.Unmarshal
	// MarshalIndent is exported by gin/json package.
	MarshalIndent = json.MarshalIndent
	// NewDecoder is exported by gin/json package.
	NewDecoder = json.NewDecoder
	// NewEncoder is exported by gin/json package.
	NewEncoder = json.NewEncoder
	// Valid reports whether the provided byte slice is valid JSON.
	Valid = json.Valid
)

// Marshal returns the sonic encoding of v.
// Empty slices and maps keep their `[]`/`{}` form, conversation payloads rely on it.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
