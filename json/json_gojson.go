//go:build !amd64

package json

import (
	json "github.com/goccy/go-json"
)

var (
	// Valid 验证
	Valid = json.Valid
	// MarshalIndent 带缩进的序列化
	MarshalIndent = json.MarshalIndent
	// NewDecoder is exported by gin/json package.
	NewDecoder = json.NewDecoder
	// NewEncoder is exported by gin/json package.
	NewEncoder = json.NewEncoder
)

// Marshal json.MarshalWithOption
func Marshal(v any) ([]byte, error) {
	return json.MarshalWithOption(v, json.UnorderedMap(), json.DisableNormalizeUTF8())
}

// Unmarshal json.UnmarshalWithOption, the first matching field wins
func Unmarshal(data []byte, v any) error {
	return json.UnmarshalWithOption(data, v, json.DecodeFieldPriorityFirstWin())
}
