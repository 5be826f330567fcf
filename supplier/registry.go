package supplier

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Factory builds a Supplier from the config node of a descriptor.
// config is nil when the descriptor has no config section.
type Factory func(config *yaml.Node) (Supplier, error)

// Descriptor is the serialized reference to a supplier:
//
//	kind: range
//	config:
//	  start: 1
//	  end: 10
type Descriptor struct {
	Kind   string    `yaml:"kind"`
	Config yaml.Node `yaml:"config"`
}

var (
	ErrUnknownKind = errors.New("unknown supplier kind")

	registryMutex = &sync.RWMutex{}
	factories     = map[string]Factory{}
)

// Register makes a factory available to Resolve under kind.
func Register(kind string, factory Factory) error {
	if kind == "" {
		return errors.New("supplier kind can't be empty")
	}
	if factory == nil {
		return errors.Errorf("supplier factory for %q can't be nil", kind)
	}
	registryMutex.Lock()
	defer registryMutex.Unlock()
	if _, ok := factories[kind]; ok {
		return errors.Errorf("supplier kind %q already registered", kind)
	}
	factories[kind] = factory
	return nil
}

func MustRegister(kind string, factory Factory) {
	if err := Register(kind, factory); err != nil {
		panic(err)
	}
}

// Kinds lists the registered kinds, sorted.
func Kinds() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	kinds := make([]string, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Decode parses a YAML logic descriptor.
func Decode(descriptor []byte) (Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(descriptor, &d); err != nil {
		return d, errors.WithMessage(err, "failed to decode supplier descriptor")
	}
	if d.Kind == "" {
		return d, errors.New("supplier descriptor has no kind")
	}
	return d, nil
}

// Resolve decodes the descriptor and builds its supplier.
func Resolve(descriptor []byte) (Supplier, error) {
	d, err := Decode(descriptor)
	if err != nil {
		return nil, err
	}
	registryMutex.RLock()
	factory, ok := factories[d.Kind]
	registryMutex.RUnlock()
	if !ok {
		return nil, errors.WithMessagef(ErrUnknownKind, "kind %q", d.Kind)
	}
	var config *yaml.Node
	if !d.Config.IsZero() {
		config = &d.Config
	}
	s, err := factory(config)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to build %q supplier", d.Kind)
	}
	return s, nil
}
