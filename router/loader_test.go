package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitalvas/pathway/route"
)

func TestMergeLoaderData(t *testing.T) {
	errBoom := errors.New("boom")

	matches := []route.Match{
		{Route: &route.Route{ID: "root"}},
		{Route: &route.Route{ID: "parent"}},
		{Route: &route.Route{ID: "child"}},
	}

	tests := []struct {
		name    string
		current map[string]any
		fresh   map[string]any
		errs    map[string]error
		want    map[string]any
	}{
		{
			name:    "carries unloaded routes forward",
			current: map[string]any{"root": "old root", "parent": "old parent", "child": "old child"},
			fresh:   map[string]any{"child": "new child"},
			want:    map[string]any{"root": "old root", "parent": "old parent", "child": "new child"},
		},
		{
			name:    "stops carrying below an errored route",
			current: map[string]any{"root": "old root", "parent": "old parent", "child": "old child"},
			fresh:   map[string]any{"parent": noData{}},
			errs:    map[string]error{"parent": errBoom},
			want:    map[string]any{"root": "old root"},
		},
		{
			name:    "keeps fresh data below an errored route",
			current: map[string]any{"root": "old root"},
			fresh:   map[string]any{"parent": noData{}, "child": "new child"},
			errs:    map[string]error{"parent": errBoom},
			want:    map[string]any{"root": "old root", "child": "new child"},
		},
		{
			name:    "drops routes no longer matched",
			current: map[string]any{"root": "old root", "gone": "stale"},
			fresh:   map[string]any{},
			want:    map[string]any{"root": "old root"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeLoaderData(tt.current, tt.fresh, matches, tt.errs))
		})
	}
}
