package store

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/reflux/internal/state"
)

// reservedNames lists the facade methods a definition may not shadow.
// Comparison is case-insensitive, so "SetState" and "setState" collide.
var reservedNames = []string{
	"get", "lookup", "set", "setState", "replaceState", "state",
	"toJS", "toObject", "toJSON", "marshalJSON",
	"onChange", "offChange",
	"addActionHandler", "getActionState", "getActionStateValue",
	"setActionState", "resetActionState", "getHandlerIndex",
	"handles", "constants", "call", "hasMethod", "methods",
	"definition", "mixin", "name",
	"mixins", "getInitialState", "storeDidMount",
}

var reserved = foldedSet(reservedNames)

// fold returns the case-folded form of name. A Caser keeps state between
// calls and must not be shared across goroutines, so each call gets its own.
func fold(name string) string {
	return cases.Fold().String(name)
}

func foldedSet(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[fold(n)] = n
	}
	return out
}

// resolution is the flattened result of a definition's mixin tree.
type resolution struct {
	order   []*Definition
	methods map[string]Method
	initial state.State
	mounts  []func(*Store)
}

// resolve flattens def and its mixins.
//
// Order: depth-first over Mixins, each mixin's own mixins first, the
// top-level definition last. A definition reachable through several paths
// is applied once, at its first position. Returns a ConstructionError for
// cycles, nil mixins and reserved method names.
func resolve(storeName string, def *Definition) (*resolution, error) {
	r := &resolution{
		methods: make(map[string]Method),
		initial: state.State{},
	}

	seen := make(map[*Definition]bool)
	if err := flatten(storeName, def, []*Definition{def}, seen, &r.order); err != nil {
		return nil, err
	}

	for _, d := range r.order {
		if err := checkMethods(storeName, d); err != nil {
			return nil, err
		}
		for name, m := range d.Methods {
			r.methods[name] = m
		}
		if d.StoreDidMount != nil {
			r.mounts = append(r.mounts, d.StoreDidMount)
		}
	}

	// Initial state is computed only after the whole tree validated, so a
	// rejected definition never runs user code.
	for _, d := range r.order {
		if d.GetInitialState == nil {
			continue
		}
		for k, v := range d.GetInitialState() {
			r.initial[k] = v
		}
	}

	return r, nil
}

func flatten(storeName string, def *Definition, path []*Definition, seen map[*Definition]bool, out *[]*Definition) error {
	for i, m := range def.Mixins {
		if m == nil {
			return constructionError(storeName, "mixin at index %d of [%s] is nil", i, def.displayName())
		}
		for _, p := range path {
			if p == m {
				return constructionError(storeName, "cyclic mixin graph: %s", describePath(append(path, m)))
			}
		}
		if seen[m] {
			continue
		}
		if err := flatten(storeName, m, append(path[:len(path):len(path)], m), seen, out); err != nil {
			return err
		}
	}
	seen[def] = true
	*out = append(*out, def)
	return nil
}

func checkMethods(storeName string, d *Definition) error {
	names := make([]string, 0, len(d.Methods))
	for name := range d.Methods {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return constructionError(storeName, "[%s] declares a method with an empty name", d.displayName())
		}
		if d.Methods[name] == nil {
			return constructionError(storeName, "method [%s] of [%s] is nil", name, d.displayName())
		}
		if facade, ok := reserved[fold(name)]; ok {
			return constructionError(storeName, "method [%s] of [%s] collides with reserved store method [%s]", name, d.displayName(), facade)
		}
	}
	return nil
}

func describePath(path []*Definition) string {
	parts := make([]string, len(path))
	for i, d := range path {
		parts[i] = d.displayName()
	}
	return strings.Join(parts, " -> ")
}
