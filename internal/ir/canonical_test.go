package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Deterministic(t *testing.T) {
	v := Object{"z": Number(1), "a": Array{Number(2.5), String("<b>")}, "m": Null{}}

	first, err := MarshalCanonical(v)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(v)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, `{"a":[2.5,"<b>"],"m":null,"z":1}`, string(first))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "e\u0301"
	data, err := MarshalCanonical(String(decomposed))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(data))
}

func TestMarshalCanonical_LineSeparators(t *testing.T) {
	data, err := MarshalCanonical(String("a\u2028b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(data))

	literal, err := MarshalCanonical(String(`a\u2028b`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(literal))
}

func TestMarshalCanonical_PlainGoValues(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"n": 3, "ok": true, "list": []any{"x"}})
	require.NoError(t, err)
	assert.Equal(t, `{"list":["x"],"n":3,"ok":true}`, string(data))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...) which sorts before U+FF21.
	data, err := MarshalCanonical(Object{"\uff21": Number(1), "\U0001F600": Number(2)})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uff21\":1}", string(data))
}
