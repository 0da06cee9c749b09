package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateConstants_Namespaced(t *testing.T) {
	c, err := CreateConstants([]string{"ONE", "TWO"}, "STORE")
	require.NoError(t, err)

	assert.Equal(t, Constant("STORE_ONE"), c["ONE"])
	assert.Equal(t, Constant("STORE_TWO"), c["TWO"])
	assert.Len(t, c, 2)
}

func TestCreateConstants_NoNamespace(t *testing.T) {
	c, err := CreateConstants([]string{"LOGIN"})
	require.NoError(t, err)
	assert.Equal(t, Constant("LOGIN"), c["LOGIN"])

	c, err = CreateConstants([]string{"LOGIN"}, "")
	require.NoError(t, err)
	assert.Equal(t, Constant("LOGIN"), c["LOGIN"])
}

func TestCreateConstants_FreshMapPerCall(t *testing.T) {
	a := MustCreateConstants([]string{"ONE"}, "STORE")
	b := MustCreateConstants([]string{"ONE"}, "STORE")

	a["ONE"] = "mutated"
	assert.Equal(t, Constant("STORE_ONE"), b["ONE"], "sets must not share storage")
}

func TestCreateConstants_RejectsDuplicates(t *testing.T) {
	_, err := CreateConstants([]string{"ONE", "ONE"}, "STORE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ONE"`)
}

func TestCreateConstants_RejectsEmptyName(t *testing.T) {
	_, err := CreateConstants([]string{"ONE", " "}, "STORE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 1")
}

func TestMustCreateConstants_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustCreateConstants([]string{""})
	})
}

func TestConstants_GetAndResolve(t *testing.T) {
	c := MustCreateConstants([]string{"LOGIN", "LOGOUT"}, "USER")

	got, err := c.Get("LOGIN")
	require.NoError(t, err)
	assert.Equal(t, Constant("USER_LOGIN"), got)

	_, err = c.Get("MISSING")
	assert.Error(t, err)

	r, ok := c.Resolve("LOGOUT")
	assert.True(t, ok)
	assert.Equal(t, Constant("USER_LOGOUT"), r)

	r, ok = c.Resolve("USER_LOGIN")
	assert.True(t, ok)
	assert.Equal(t, Constant("USER_LOGIN"), r)

	_, ok = c.Resolve("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"LOGIN", "LOGOUT"}, c.Names())
}

func TestPayload_Accessors(t *testing.T) {
	var nilPayload Payload
	assert.Nil(t, nilPayload.Get("x"))
	assert.Empty(t, nilPayload.Clone())

	p := Payload{"username": "mustermann", "n": 3}
	assert.Equal(t, "mustermann", p.String("username"))
	assert.Equal(t, "", p.String("n"))

	clone := p.Clone()
	clone["username"] = "other"
	assert.Equal(t, "mustermann", p.String("username"))
}
