package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/state"
	"github.com/roach88/reflux/internal/testutil"
)

func method(result any) Method {
	return func(*Store, ...any) (any, error) { return result, nil }
}

// ============================================================================
// Precedence
// ============================================================================

func TestNew_MixinChainPrecedence(t *testing.T) {
	c := &Definition{
		Name:            "C",
		GetInitialState: func() state.State { return state.State{"shared": "c", "fromC": 1} },
		Methods:         map[string]Method{"cMethod": method("c")},
	}
	a := &Definition{
		Name:            "A",
		Mixins:          []*Definition{c},
		GetInitialState: func() state.State { return state.State{"shared": "a"} },
		Methods:         map[string]Method{"aMethod": method("a")},
	}
	b := &Definition{
		Name:    "B",
		Methods: map[string]Method{"bMethod": method("b")},
	}

	s, err := New(&Definition{Name: "top", Mixins: []*Definition{a, b}}, nil)
	require.NoError(t, err)

	assert.True(t, s.HasMethod("cMethod"))
	assert.True(t, s.HasMethod("aMethod"))
	assert.True(t, s.HasMethod("bMethod"))
	assert.Equal(t, "a", s.Get("shared"), "outer mixin overrides inner")
	assert.Equal(t, 1, s.Get("fromC"))
}

func TestNew_EnhancedMixinOverridesBase(t *testing.T) {
	foo := &Definition{
		Name:            "Foo",
		GetInitialState: func() state.State { return state.State{"abc": "abc", "foo": true} },
		Methods:         map[string]Method{"describe": method("foo")},
	}
	enhancedFoo := &Definition{
		Name:            "EnhancedFoo",
		Mixins:          []*Definition{foo},
		GetInitialState: func() state.State { return state.State{"abc": "abc-enhanced"} },
	}
	bar := &Definition{
		Name:            "Bar",
		GetInitialState: func() state.State { return state.State{"bar": true} },
		Methods:         map[string]Method{"describe": method("bar")},
	}

	s, err := New(&Definition{Mixins: []*Definition{enhancedFoo, bar}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "abc-enhanced", s.Get("abc"))
	assert.Equal(t, true, s.Get("foo"))
	assert.Equal(t, true, s.Get("bar"))

	got, err := s.Call("describe")
	require.NoError(t, err)
	assert.Equal(t, "bar", got, "later mixin wins for methods")
}

func TestNew_TopLevelOverridesMixins(t *testing.T) {
	m := &Definition{
		GetInitialState: func() state.State { return state.State{"k": "mixin"} },
		Methods:         map[string]Method{"m": method("mixin")},
	}
	s, err := New(&Definition{
		Mixins:          []*Definition{m},
		GetInitialState: func() state.State { return state.State{"k": "top"} },
		Methods:         map[string]Method{"m": method("top")},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "top", s.Get("k"))
	got, err := s.Call("m")
	require.NoError(t, err)
	assert.Equal(t, "top", got)
}

func TestNew_MethodReceivesStoreAndArgs(t *testing.T) {
	s, err := New(&Definition{
		GetInitialState: func() state.State { return state.State{"n": 2} },
		Methods: map[string]Method{
			"times": func(s *Store, args ...any) (any, error) {
				return s.Get("n").(int) * args[0].(int), nil
			},
		},
	}, nil)
	require.NoError(t, err)

	got, err := s.Call("times", 21)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

// ============================================================================
// StoreDidMount
// ============================================================================

func TestNew_StoreDidMountOncePerSourceAfterInitialState(t *testing.T) {
	rec := testutil.NewRecorder()
	source := func(name string, mixins ...*Definition) *Definition {
		return &Definition{
			Name:   name,
			Mixins: mixins,
			GetInitialState: func() state.State {
				rec.Record("initial:" + name)
				return state.State{name: true}
			},
			StoreDidMount: func(s *Store) {
				// Every key of the merged state is visible from every hook.
				for _, key := range []string{"C", "A", "B", "top"} {
					assert.Equal(t, true, s.Get(key), "mount %s saw %s unset", name, key)
				}
				rec.Record("mount:" + name)
			},
		}
	}

	c := source("C")
	a := source("A", c)
	b := source("B")
	_, err := New(source("top", a, b), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"initial:C", "initial:A", "initial:B", "initial:top",
		"mount:C", "mount:A", "mount:B", "mount:top",
	}, rec.Calls())
}

func TestNew_StoreDidMountSeesHandlers(t *testing.T) {
	var handled bool
	_, err := New(&Definition{
		StoreDidMount: func(s *Store) { handled = s.Handles("FOO") },
	}, []HandlerDefinition{On("FOO", func() {})})
	require.NoError(t, err)
	assert.True(t, handled)
}

func TestNew_DiamondMixinAppliedOnce(t *testing.T) {
	rec := testutil.NewRecorder()
	shared := &Definition{Name: "shared", StoreDidMount: func(*Store) { rec.Record("shared") }}
	a := &Definition{Name: "a", Mixins: []*Definition{shared}}
	b := &Definition{Name: "b", Mixins: []*Definition{shared}}

	_, err := New(&Definition{Mixins: []*Definition{a, b}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Count("shared"))
}

func TestNew_StoreUsableAsMixin(t *testing.T) {
	base := MustNew(&Definition{
		Name:            "base",
		GetInitialState: func() state.State { return state.State{"base": 1} },
		Methods:         map[string]Method{"hello": method("hi")},
	}, nil)

	s, err := New(&Definition{Mixins: []*Definition{base.Definition()}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Get("base"))
	assert.True(t, s.HasMethod("hello"))
}

// ============================================================================
// Construction errors
// ============================================================================

func TestNew_CyclicMixinGraph(t *testing.T) {
	a := &Definition{Name: "a"}
	b := &Definition{Name: "b", Mixins: []*Definition{a}}
	a.Mixins = []*Definition{b}

	s, err := New(&Definition{Name: "top", Mixins: []*Definition{a}}, nil)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, IsConstructionError(err))
	assert.Contains(t, err.Error(), "cyclic mixin graph: top -> a -> b -> a")
}

func TestNew_SelfMixin(t *testing.T) {
	top := &Definition{Name: "top"}
	top.Mixins = []*Definition{top}

	_, err := New(top, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top -> top")
}

func TestNew_ReservedNameCollision(t *testing.T) {
	for _, name := range []string{"setState", "SetState", "GETACTIONSTATE", "onChange"} {
		t.Run(name, func(t *testing.T) {
			mixin := &Definition{Name: "bad", Methods: map[string]Method{name: method(nil)}}
			_, err := New(&Definition{Mixins: []*Definition{mixin}}, nil)
			require.Error(t, err)
			assert.True(t, IsConstructionError(err))
			assert.Contains(t, err.Error(), "collides with reserved store method")
			assert.Contains(t, err.Error(), "["+name+"]")
		})
	}
}

func TestNew_NilMixinAndNilMethod(t *testing.T) {
	_, err := New(&Definition{Name: "top", Mixins: []*Definition{nil}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixin at index 0 of [top] is nil")

	_, err = New(&Definition{Methods: map[string]Method{"m": nil}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method [m]")
}

func TestNew_RejectedDefinitionRunsNoUserCode(t *testing.T) {
	rec := testutil.NewRecorder()
	ok := &Definition{
		GetInitialState: func() state.State { rec.Record("initial"); return nil },
		StoreDidMount:   func(*Store) { rec.Record("mount") },
	}
	bad := &Definition{Methods: map[string]Method{"replaceState": method(nil)}}

	_, err := New(&Definition{Mixins: []*Definition{ok, bad}}, nil)
	require.Error(t, err)
	assert.Empty(t, rec.Calls())
}
