package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vitalvas/pathway/route"
)

var (
	// ErrUnsupportedFormat is returned for a manifest format other than
	// YAML or JSON.
	ErrUnsupportedFormat = errors.New("manifest: unsupported format")

	// ErrUnknownHandler is returned by Build when a route references a
	// name missing from the registry.
	ErrUnknownHandler = errors.New("manifest: unknown handler")
)

// Format is a manifest encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath derives the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Manifest is a declarative route tree.
type Manifest struct {
	// Basename is the URL prefix the application is served under.
	Basename string `yaml:"basename,omitempty" json:"basename,omitempty"`

	// Routes are the top-level routes.
	Routes []Route `yaml:"routes" json:"routes"`
}

// Route describes one node of the tree. Handler fields hold registry
// names.
type Route struct {
	ID               string     `yaml:"id,omitempty" json:"id,omitempty"`
	Path             string     `yaml:"path,omitempty" json:"path,omitempty"`
	Index            bool       `yaml:"index,omitempty" json:"index,omitempty"`
	CaseSensitive    bool       `yaml:"caseSensitive,omitempty" json:"caseSensitive,omitempty"`
	Loader           string     `yaml:"loader,omitempty" json:"loader,omitempty"`
	Action           string     `yaml:"action,omitempty" json:"action,omitempty"`
	ShouldRevalidate Revalidate `yaml:"shouldRevalidate,omitempty" json:"shouldRevalidate,omitzero"`
	ErrorBoundary    bool       `yaml:"errorBoundary,omitempty" json:"errorBoundary,omitempty"`
	Handle           any        `yaml:"handle,omitempty" json:"handle,omitempty"`
	Children         []Route    `yaml:"children,omitempty" json:"children,omitempty"`
}

// Revalidate is the shouldRevalidate field of a route: either the name of
// a registered predicate or a fixed boolean decision.
type Revalidate struct {
	name  string
	fixed *bool
}

// RevalidateName references a registered predicate.
func RevalidateName(name string) Revalidate {
	return Revalidate{name: name}
}

// RevalidateFixed always answers decision.
func RevalidateFixed(decision bool) Revalidate {
	return Revalidate{fixed: &decision}
}

// Name returns the referenced predicate name, if any.
func (r Revalidate) Name() string {
	return r.name
}

// Fixed returns the fixed decision and whether one is set.
func (r Revalidate) Fixed() (bool, bool) {
	if r.fixed == nil {
		return false, false
	}
	return *r.fixed, true
}

// IsZero reports whether the field is unset.
func (r Revalidate) IsZero() bool {
	return r.name == "" && r.fixed == nil
}

// MarshalYAML encodes the field as a boolean or a name scalar.
func (r Revalidate) MarshalYAML() (any, error) {
	if r.fixed != nil {
		return *r.fixed, nil
	}
	if r.name == "" {
		return nil, nil
	}
	return r.name, nil
}

// UnmarshalYAML decodes the field from a boolean or a name scalar.
func (r *Revalidate) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("manifest: shouldRevalidate must be a name or a boolean, got YAML node kind %d", node.Kind)
	}

	if node.ShortTag() == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*r = RevalidateFixed(b)
		return nil
	}

	*r = RevalidateName(node.Value)
	return nil
}

// MarshalJSON encodes the field as a JSON boolean or string.
func (r Revalidate) MarshalJSON() ([]byte, error) {
	if r.fixed != nil {
		return []byte(strconv.FormatBool(*r.fixed)), nil
	}
	if r.name == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.name)
}

// UnmarshalJSON decodes the field from a JSON boolean or string.
func (r *Revalidate) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*r = Revalidate{}
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*r = RevalidateFixed(b)
		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("manifest: shouldRevalidate must be a name or a boolean: %w", err)
	}
	*r = RevalidateName(name)
	return nil
}

// Parse decodes a manifest. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("manifest: decode yaml: %w", err)
		}

	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("manifest: decode json: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return &m, nil
}

// Load reads and decodes the manifest at path. The format is taken from
// the file extension.
func Load(path string) (*Manifest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	return Parse(data, format)
}

// Dump encodes m in format.
func Dump(m *Manifest, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return nil, fmt.Errorf("manifest: encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("manifest: encode yaml: %w", err)
		}
		return buf.Bytes(), nil

	case FormatJSON:
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("manifest: encode json: %w", err)
		}
		return append(data, '\n'), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Build binds the manifest to the handlers of reg and returns the route
// tree. Every referenced name must be registered.
func (m *Manifest) Build(reg *Registry) ([]*route.Route, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	return buildRoutes(m.Routes, reg, "")
}

func buildRoutes(specs []Route, reg *Registry, parentPath string) ([]*route.Route, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	out := make([]*route.Route, 0, len(specs))
	for i, spec := range specs {
		where := spec.ID
		if where == "" {
			where = parentPath + "/" + strconv.Itoa(i)
		}

		rt := &route.Route{
			ID:               spec.ID,
			Path:             spec.Path,
			Index:            spec.Index,
			CaseSensitive:    spec.CaseSensitive,
			HasErrorBoundary: spec.ErrorBoundary,
			Handle:           spec.Handle,
		}

		if spec.Loader != "" {
			fn, ok := reg.loaders[spec.Loader]
			if !ok {
				return nil, fmt.Errorf("%w: loader %q of route %q", ErrUnknownHandler, spec.Loader, where)
			}
			rt.Loader = fn
		}

		if spec.Action != "" {
			fn, ok := reg.actions[spec.Action]
			if !ok {
				return nil, fmt.Errorf("%w: action %q of route %q", ErrUnknownHandler, spec.Action, where)
			}
			rt.Action = fn
		}

		if decision, ok := spec.ShouldRevalidate.Fixed(); ok {
			rt.ShouldRevalidate = func(route.ShouldRevalidateArgs) bool {
				return decision
			}
		} else if name := spec.ShouldRevalidate.Name(); name != "" {
			fn, ok := reg.revalidators[name]
			if !ok {
				return nil, fmt.Errorf("%w: shouldRevalidate %q of route %q", ErrUnknownHandler, name, where)
			}
			rt.ShouldRevalidate = fn
		}

		children, err := buildRoutes(spec.Children, reg, where)
		if err != nil {
			return nil, err
		}
		rt.Children = children

		out = append(out, rt)
	}

	return out, nil
}

// FromRoutes describes routes as a manifest. Handlers are named after
// their route id, so routes without an id should be passed through
// route.Prepare first. Handle values are kept as is.
func FromRoutes(routes []*route.Route) *Manifest {
	return &Manifest{Routes: describeRoutes(routes)}
}

func describeRoutes(routes []*route.Route) []Route {
	if len(routes) == 0 {
		return nil
	}

	out := make([]Route, 0, len(routes))
	for _, rt := range routes {
		spec := Route{
			ID:            rt.ID,
			Path:          rt.Path,
			Index:         rt.Index,
			CaseSensitive: rt.CaseSensitive,
			ErrorBoundary: rt.HasErrorBoundary,
			Handle:        rt.Handle,
			Children:      describeRoutes(rt.Children),
		}

		if rt.Loader != nil {
			spec.Loader = rt.ID
		}
		if rt.Action != nil {
			spec.Action = rt.ID
		}
		if rt.ShouldRevalidate != nil {
			spec.ShouldRevalidate = RevalidateName(rt.ID)
		}

		out = append(out, spec)
	}

	return out
}
