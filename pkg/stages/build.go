package stages

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/view"
)

// Stage names understood by Build.
const (
	NameKinds        = "kinds"
	NameSort         = "sort"
	NameOwningGroup  = "owning-group"
	NameFileGrouping = "group-by-file"
)

// Default priorities. Higher runs first.
const (
	PriorityKinds        = 100
	PriorityOwningGroup  = 80
	PrioritySort         = 50
	PriorityFileGrouping = 20
)

// Registry is the stage registry of the bookmark tree.
type Registry = pipeline.Registry[*view.Entry]

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return pipeline.NewRegistry[*view.Entry]()
}

// Spec describes one configured stage.
type Spec struct {
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// Priority overrides the stage's default priority when set.
	Priority *int           `yaml:"priority,omitempty" json:"priority,omitempty" mapstructure:"priority"`
	Options  map[string]any `yaml:"options,omitempty" json:"options,omitempty" mapstructure:"options"`
}

type factory struct {
	priority int
	build    func(priority int, options map[string]any) (pipeline.Stage[*view.Entry], error)
}

type kindsOptions struct {
	Kinds []domain.Kind `mapstructure:"kinds"`
}

type sortOptions struct {
	By SortOrder `mapstructure:"by"`
}

var factories = map[string]factory{
	NameKinds: {PriorityKinds, func(priority int, options map[string]any) (pipeline.Stage[*view.Entry], error) {
		var opts kindsOptions
		if err := decode(options, &opts); err != nil {
			return nil, err
		}
		if len(opts.Kinds) == 0 {
			return nil, fmt.Errorf("at least one kind is required")
		}
		return NewKindFilter(priority, opts.Kinds...), nil
	}},
	NameSort: {PrioritySort, func(priority int, options map[string]any) (pipeline.Stage[*view.Entry], error) {
		var opts sortOptions
		if err := decode(options, &opts); err != nil {
			return nil, err
		}
		return NewSort(priority, opts.By)
	}},
	NameOwningGroup: {PriorityOwningGroup, func(priority int, options map[string]any) (pipeline.Stage[*view.Entry], error) {
		if err := decode(options, &struct{}{}); err != nil {
			return nil, err
		}
		return NewOwningGroup(priority), nil
	}},
	NameFileGrouping: {PriorityFileGrouping, func(priority int, options map[string]any) (pipeline.Stage[*view.Entry], error) {
		if err := decode(options, &struct{}{}); err != nil {
			return nil, err
		}
		return NewFileGrouping(priority), nil
	}},
}

// Names returns the stage names Build understands, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates a registry with one stage per spec, registered in spec order.
func Build(specs []Spec) (*Registry, error) {
	reg := NewRegistry()
	for i, spec := range specs {
		f, ok := factories[spec.Name]
		if !ok {
			return nil, fmt.Errorf("stage %d: unknown stage %q", i, spec.Name)
		}
		priority := f.priority
		if spec.Priority != nil {
			priority = *spec.Priority
		}
		stage, err := f.build(priority, spec.Options)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, spec.Name, err)
		}
		reg.Register(spec.Name, stage)
	}
	return reg, nil
}

// Default returns the registry used when nothing is configured:
// owning-group annotation and file grouping.
func Default() *Registry {
	reg := NewRegistry()
	reg.Register(NameOwningGroup, NewOwningGroup(PriorityOwningGroup))
	reg.Register(NameFileGrouping, NewFileGrouping(PriorityFileGrouping))
	return reg
}

func decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}
