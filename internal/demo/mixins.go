package demo

import (
	"github.com/roach88/reflux/internal/state"
	"github.com/roach88/reflux/internal/store"
)

// Loading tracks whether a store is busy and the last error it saw.
var Loading = &store.Definition{
	Name: "Loading",
	GetInitialState: func() state.State {
		return state.State{"isLoading": false, "error": nil}
	},
	Methods: map[string]store.Method{
		"isLoading": func(s *store.Store, _ ...any) (any, error) {
			busy, _ := s.Get("isLoading").(bool)
			return busy, nil
		},
		"lastError": func(s *store.Store, _ ...any) (any, error) {
			return s.Get("error"), nil
		},
	},
}

// Counting gives a store a per-key counter.
var Counting = &store.Definition{
	Name: "Counting",
	GetInitialState: func() state.State {
		return state.State{"counts": map[string]int{}}
	},
	Methods: map[string]store.Method{
		"count": func(s *store.Store, args ...any) (any, error) {
			if len(args) != 1 {
				return 0, nil
			}
			key, _ := args[0].(string)
			return counts(s)[key], nil
		},
	},
}

func counts(s *store.Store) map[string]int {
	c, _ := s.Get("counts").(map[string]int)
	return c
}

// increment bumps counter key. The map is copied so earlier snapshots keep
// their values.
func increment(s *store.Store, key string) {
	prev := counts(s)
	next := make(map[string]int, len(prev)+1)
	for k, v := range prev {
		next[k] = v
	}
	next[key]++
	s.Set(state.State{"counts": next})
}
