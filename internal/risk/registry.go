package risk

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Registry holds the known models by name. Loading a YAML file may add
// models or replace built-in ones of the same name.
type Registry struct {
	models map[string]Model
}

func NewRegistry(models ...Model) (*Registry, error) {
	r := &Registry{models: map[string]Model{}}
	for _, m := range models {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry contains the built-in models.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinModels()...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Register(m Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	r.models[m.Name] = m
	return nil
}

func (r *Registry) Get(name string) (Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Models() []Model {
	names := r.Names()
	out := make([]Model, 0, len(names))
	for _, name := range names {
		out = append(out, r.models[name])
	}
	return out
}

// Engine builds the engine of a named model.
func (r *Registry) Engine(name string) (*Engine, error) {
	m, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown risk model %q", name)
	}
	return NewEngine(m)
}

type modelFile struct {
	Models []Model `yaml:"models"`
}

// LoadModels decodes a YAML document of the form:
//
//	models:
//	  - name: custom_v3
//	    rules:
//	      - field: steps
//	        missing: 0
//	        bands:
//	          - {op: lt, threshold: 3000, points: 30}
//	          - {op: any, points: 5}
//	    levels:
//	      - {op: ge, threshold: 70, level: high}
//	      - {op: any, level: low}
//
// A zero ceiling defaults to 100.
func LoadModels(r io.Reader) ([]Model, error) {
	var file modelFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode risk models: %w", err)
	}
	for i := range file.Models {
		if file.Models[i].Ceiling == 0 {
			file.Models[i].Ceiling = DefaultCeiling
		}
		if err := file.Models[i].Validate(); err != nil {
			return nil, err
		}
	}
	return file.Models, nil
}

// LoadModelsFile registers every model of a YAML file.
func (r *Registry) LoadModelsFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open risk models: %w", err)
	}
	defer file.Close()
	models, err := LoadModels(file)
	if err != nil {
		return err
	}
	for _, m := range models {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Select builds the engine of the named model, moving its medium threshold
// when mediumThreshold is set. A moved threshold renames the model with
// VariantName. An empty name selects DefaultModel.
func (r *Registry) Select(name string, mediumThreshold *float64) (*Engine, error) {
	if name == "" {
		name = DefaultModel
	}
	m, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown risk model %q (known: %v)", name, r.Names())
	}
	if mediumThreshold != nil {
		current, ok := m.MediumThreshold()
		if !ok {
			return nil, fmt.Errorf("risk model %q has no medium level to override", name)
		}
		if current != *mediumThreshold {
			m = m.WithMediumThreshold(*mediumThreshold)
			m.Name = VariantName(name, *mediumThreshold)
			m.Description = fmt.Sprintf("%s, medium from %s", m.Description, formatThreshold(*mediumThreshold))
		}
	}
	return NewEngine(m)
}

// VariantName names a model whose medium threshold was moved, so its
// assessments are stored apart from the base model's.
func VariantName(base string, mediumThreshold float64) string {
	return base + "@medium" + formatThreshold(mediumThreshold)
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
