package action

import (
	"fmt"
	"sort"
	"strings"
)

// Constant is the opaque identifier of an action type.
type Constant string

// String implements fmt.Stringer.
func (c Constant) String() string {
	return string(c)
}

// IsZero reports whether c is the empty constant.
func (c Constant) IsZero() bool {
	return c == ""
}

// Constants maps short action names to their namespaced constants.
type Constants map[string]Constant

// CreateConstants builds a fresh set of constants for names.
//
// With a namespace every constant is "NAMESPACE_NAME", otherwise the name
// itself:
//
//	c, _ := CreateConstants([]string{"ONE", "TWO"}, "STORE")
//	c["ONE"] // "STORE_ONE"
//
// Empty or duplicate names are rejected.
func CreateConstants(names []string, namespace ...string) (Constants, error) {
	prefix := ""
	if len(namespace) > 0 && namespace[0] != "" {
		prefix = namespace[0] + "_"
	}

	out := make(Constants, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("constant name at index %d is empty", i)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("constant name %q declared twice", name)
		}
		out[name] = Constant(prefix + name)
	}
	return out, nil
}

// MustCreateConstants is like CreateConstants but panics on error.
// Intended for package-level constant declarations.
func MustCreateConstants(names []string, namespace ...string) Constants {
	c, err := CreateConstants(names, namespace...)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the constant registered under name.
func (c Constants) Get(name string) (Constant, error) {
	v, ok := c[name]
	if !ok {
		return "", fmt.Errorf("constant %q is not defined", name)
	}
	return v, nil
}

// Names returns the short names in sorted order.
func (c Constants) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve accepts either a short name or a full constant value and returns
// the matching constant. Used by loaders that read constants from text.
func (c Constants) Resolve(s string) (Constant, bool) {
	if v, ok := c[s]; ok {
		return v, true
	}
	for _, v := range c {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}
