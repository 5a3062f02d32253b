package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func TestMarshalRoundTrip(t *testing.T) {
	in := []*turn{{Role: "user", Content: "Hello"}, {Role: "assistant", Content: "Hi there"}}
	s, err := MarshalToString(in)
	require.NoError(t, err)
	assert.True(t, Valid(Bytes(s)))

	out := make([]*turn, 0)
	require.NoError(t, UnmarshalFromString(s, &out))
	assert.Equal(t, in, out)
}

func TestMarshalEmptySlice(t *testing.T) {
	b, err := Marshal([]*turn{})
	require.NoError(t, err)
	assert.Equal(t, "[]", String(b))
}
