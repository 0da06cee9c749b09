package action

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"b": 1, "a": "x", "c": true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":true}`, string(data))
}

func TestMarshalCanonical_Nested(t *testing.T) {
	v := map[string]any{
		"list": []any{1, "two", nil, map[string]any{"z": 1, "y": 2}},
		"null": nil,
	}
	data, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, `{"list":[1,"two",null,{"y":2,"z":1}],"null":null}`, string(data))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	data, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(data))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9.
	data, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(data))
}

func TestMarshalCanonical_LineSeparators(t *testing.T) {
	data, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(data))

	// Literal backslash followed by the text u2028 stays escaped.
	data, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(data))
}

func TestMarshalCanonical_Floats(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"i": 2.0, "f": 1.5})
	require.NoError(t, err)
	assert.Equal(t, `{"f":1.5,"i":2}`, string(data))

	_, err = MarshalCanonical(math.NaN())
	assert.Error(t, err)
	_, err = MarshalCanonical(math.Inf(1))
	assert.Error(t, err)
}

func TestMarshalCanonical_NamedMapAndSliceTypes(t *testing.T) {
	type bag map[string]any
	data, err := MarshalCanonical(bag{"k": []string{"x", "y"}, "n": uint8(7)})
	require.NoError(t, err)
	assert.Equal(t, `{"k":["x","y"],"n":7}`, string(data))

	data, err = MarshalCanonical(Payload{"c": Constant("STORE_ONE")})
	require.NoError(t, err)
	assert.Equal(t, `{"c":"STORE_ONE"}`, string(data))
}

func TestMarshalCanonical_Structs(t *testing.T) {
	type user struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	data, err := MarshalCanonical(map[string]any{"user": user{Name: "mustermann", Age: 42}})
	require.NoError(t, err)
	assert.Equal(t, `{"user":{"age":42,"name":"mustermann"}}`, string(data))

	data, err = MarshalCanonical(&user{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"age":0,"name":"x"}`, string(data))
}

func TestMarshalCanonical_RejectsUnsupported(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"fn": func() {}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"fn"`)

	_, err = MarshalCanonical(map[int]string{1: "x"})
	assert.Error(t, err)
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FB01
	// in UTF-16 even though UTF-8 puts it after.
	keys := SortedKeys(map[string]int{"\uFB01": 1, "\U0001F600": 2, "a": 3})
	assert.Equal(t, []string{"a", "\U0001F600", "\uFB01"}, keys)
}

func TestPayloadHash_Stable(t *testing.T) {
	h1, err := PayloadHash("USER_LOGIN", Payload{"username": "a", "password": "b"})
	require.NoError(t, err)
	h2, err := PayloadHash("USER_LOGIN", Payload{"password": "b", "username": "a"})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	h3, err := PayloadHash("USER_LOGOUT", Payload{"password": "b", "username": "a"})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)

	empty, err := PayloadHash("USER_LOGOUT", nil)
	require.NoError(t, err)
	empty2, err := PayloadHash("USER_LOGOUT", Payload{})
	require.NoError(t, err)
	assert.Equal(t, empty, empty2)
}
