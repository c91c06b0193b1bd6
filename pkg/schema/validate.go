package schema

import (
	"slices"

	"github.com/aretw0/tendril/pkg/domain"
)

// Schema is a map of field names to their expected types.
type Schema map[string]Type

// Validate checks that data holds every field of the schema with the right
// type. Errors are reported in field-name order.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	var errs []error
	for _, field := range sortedKeys(schema) {
		value, exists := data[field]
		if !exists {
			errs = append(errs, &ArgError{Key: field, Reason: "required"})
			continue
		}
		if err := schema[field].Validate(value); err != nil {
			errs = append(errs, &ArgError{Key: field, Reason: err.Error(), Value: value})
		}
	}
	return aggregate(errs)
}

// ValidateArgs checks model-supplied arguments against a tool's declared
// arguments: unknown arguments, missing required arguments and type
// mismatches are all reported.
func ValidateArgs(spec domain.ToolSpec, args map[string]any) error {
	declared := make(map[string]domain.Argument, len(spec.Arguments))
	for _, a := range spec.Arguments {
		declared[a.Name] = a
	}

	var errs []error
	for _, name := range sortedKeys(args) {
		if _, ok := declared[name]; !ok {
			errs = append(errs, &ArgError{Key: name, Reason: "unknown argument", Value: args[name]})
		}
	}
	for _, a := range spec.Arguments {
		value, exists := args[a.Name]
		if !exists {
			if a.Required {
				errs = append(errs, &ArgError{Key: a.Name, Reason: "required"})
			}
			continue
		}
		if a.Type == "" {
			continue
		}
		t, err := ParseType(a.Type)
		if err != nil {
			errs = append(errs, &ArgError{Key: a.Name, Reason: err.Error()})
			continue
		}
		if err := t.Validate(value); err != nil {
			errs = append(errs, &ArgError{Key: a.Name, Reason: err.Error(), Value: value})
		}
	}
	return aggregate(errs)
}

func aggregate(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &ArgsError{Errors: errs}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
