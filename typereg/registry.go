package typereg

import (
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	opcuabridge "github.com/wippyai/opcua-bridge"
	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/transcoder"
	"github.com/wippyai/opcua-bridge/ua"
)

// MemberDef is one member of a structure as written in configuration.
// Type is either a scalar name (u8, uint16, double...) or the name of
// another structure. A missing Elements means a single element.
type MemberDef struct {
	Elements *uint32 `yaml:"elements,omitempty"`
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type"`
}

// TypeDef is a named structure type.
type TypeDef struct {
	// Encoding is the binary encoding node id of the server type, used
	// when the structure has to be created rather than read back.
	Encoding string      `yaml:"encoding,omitempty"`
	Name     string      `yaml:"name"`
	Members  []MemberDef `yaml:"members"`
}

type entry struct {
	encoding ua.NodeID
	members  []opcuabridge.Member
}

// Registry is an in-memory structure registry. It implements
// opcuabridge.Oracle and is safe for concurrent use.
type Registry struct {
	types map[string]*entry
	mu    sync.RWMutex
}

var _ opcuabridge.Oracle = (*Registry)(nil)

// New creates an empty registry.
func New() *Registry {
	return &Registry{types: make(map[string]*entry)}
}

// Define adds or replaces a structure type. Member types naming other
// structures are checked by Validate, so types may be defined in any order.
func (r *Registry) Define(def TypeDef) error {
	if def.Name == "" {
		return errors.FieldMissing(errors.PhaseConfig, []string{"types"}, "name")
	}
	if len(def.Members) == 0 {
		return errors.FieldMissing(errors.PhaseConfig, []string{"types", def.Name}, "members")
	}
	if transcoder.IsScalar(def.Name) {
		return errors.InvalidInput(errors.PhaseConfig, "type name "+def.Name+" shadows a scalar type")
	}

	e := &entry{members: make([]opcuabridge.Member, len(def.Members))}
	seen := make(map[string]bool, len(def.Members))
	for i, md := range def.Members {
		path := []string{"types", def.Name, md.Name}
		if md.Name == "" {
			return errors.FieldMissing(errors.PhaseConfig, path[:2], "members.name")
		}
		if seen[md.Name] {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(path...).
				Detail("duplicate member").
				Build()
		}
		seen[md.Name] = true
		if md.Type == "" {
			return errors.FieldMissing(errors.PhaseConfig, path, "type")
		}

		m := opcuabridge.Member{Name: md.Name, Elements: 1}
		if md.Elements != nil {
			m.Elements = *md.Elements
		}
		if scalar, err := transcoder.ParseScalar(md.Type); err == nil {
			m.Scalar = scalar
		} else {
			m.Structured = true
			m.TypeName = md.Type
		}
		e.members[i] = m
	}

	if def.Encoding != "" {
		id, err := ua.ParseNodeID(def.Encoding)
		if err != nil {
			return err
		}
		e.encoding = id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[def.Name] = e
	return nil
}

// Validate checks that every structured member names a defined type and
// that no type contains itself.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(r.types))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visiting:
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(path...).
				Detail("type %q contains itself", name).
				Build()
		case done:
			return nil
		}
		state[name] = visiting
		for _, m := range r.types[name].members {
			if !m.Structured {
				continue
			}
			if _, ok := r.types[m.TypeName]; !ok {
				return errors.New(errors.PhaseConfig, errors.KindNotFound).
					Path(append(path[:len(path):len(path)], m.Name)...).
					Detail("unknown type %q", m.TypeName).
					Build()
			}
			if err := visit(m.TypeName, append(path[:len(path):len(path)], m.Name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, name := range r.namesLocked() {
		if err := visit(name, []string{name}); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether name is a defined structure.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[name]
	return ok
}

// Names returns the defined type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encoding returns the binary encoding id of a type, or nil if none was
// configured.
func (r *Registry) Encoding(name string) ua.NodeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.types[name]; ok {
		return e.encoding
	}
	return nil
}

func (r *Registry) MemberCount(typeName string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.types[typeName]
	if !ok {
		return 0, errors.NotFound(errors.PhaseLayout, "type", typeName)
	}
	return len(e.members), nil
}

func (r *Registry) Member(typeName string, index int) (opcuabridge.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.types[typeName]
	if !ok {
		return opcuabridge.Member{}, errors.NotFound(errors.PhaseLayout, "type", typeName)
	}
	if index < 0 || index >= len(e.members) {
		return opcuabridge.Member{}, errors.OutOfBounds(errors.PhaseLayout, typeName, index, len(e.members))
	}
	return e.members[index], nil
}

// document is the YAML shape accepted by Parse.
type document struct {
	Types []TypeDef `yaml:"types"`
}

// FromDefs builds and validates a registry from defs.
func FromDefs(defs []TypeDef) (*Registry, error) {
	r := New()
	for _, def := range defs {
		if r.Has(def.Name) {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("types", def.Name).
				Detail("duplicate type").
				Build()
		}
		if err := r.Define(def); err != nil {
			return nil, err
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Parse reads a YAML document with a top-level types list.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse type registry")
	}
	return FromDefs(doc.Types)
}

// Load reads a registry file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read type registry "+path)
	}
	return Parse(data)
}
