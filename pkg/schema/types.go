package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Type defines the contract for field validation.
type Type interface {
	// Name returns the JSON Schema style name of the type.
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

type stringType struct{}

func (stringType) Name() string { return "string" }

func (stringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

type integerType struct{}

func (integerType) Name() string { return "integer" }

func (integerType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case float64:
		// JSON numbers decode as float64; accept whole values.
		if v == float64(int64(v)) {
			return nil
		}
		return fmt.Errorf("expected integer, got fractional number %v", v)
	default:
		return fmt.Errorf("expected integer, got %T", value)
	}
}

type numberType struct{}

func (numberType) Name() string { return "number" }

func (numberType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	default:
		return fmt.Errorf("expected number, got %T", value)
	}
}

type booleanType struct{}

func (booleanType) Name() string { return "boolean" }

func (booleanType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected boolean, got %T", value)
	}
	return nil
}

type objectType struct{}

func (objectType) Name() string { return "object" }

func (objectType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("expected object, got %T", value)
	}
	return nil
}

// arrayType validates slices, optionally checking every element.
type arrayType struct {
	elem Type
}

func (t arrayType) Name() string {
	if t.elem == nil {
		return "array"
	}
	return fmt.Sprintf("[%s]", t.elem.Name())
}

func (t arrayType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected array, got %T", value)
	}
	if t.elem == nil {
		return nil
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

type customType struct {
	name     string
	validate func(any) error
}

func (t customType) Name() string { return t.name }

func (t customType) Validate(value any) error { return t.validate(value) }

// String creates a string type validator.
func String() Type { return stringType{} }

// Integer creates an integer type validator.
func Integer() Type { return integerType{} }

// Number creates a number type validator accepting any numeric value.
func Number() Type { return numberType{} }

// Boolean creates a boolean type validator.
func Boolean() Type { return booleanType{} }

// Object creates a validator for string-keyed maps.
func Object() Type { return objectType{} }

// Array creates a slice validator. A nil elem accepts any element.
func Array(elem Type) Type { return arrayType{elem: elem} }

// Custom creates a type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return customType{name: name, validate: validate}
}

// ParseType converts a type name to a Type. Besides the JSON Schema names
// it accepts the short aliases int, float and bool, and typed arrays written
// as "[elem]".
func ParseType(name string) (Type, error) {
	name = strings.TrimSpace(name)
	if len(name) > 2 && name[0] == '[' && name[len(name)-1] == ']' {
		elem, err := ParseType(name[1 : len(name)-1])
		if err != nil {
			return nil, err
		}
		return Array(elem), nil
	}
	switch name {
	case "string":
		return String(), nil
	case "integer", "int":
		return Integer(), nil
	case "number", "float":
		return Number(), nil
	case "boolean", "bool":
		return Boolean(), nil
	case "object":
		return Object(), nil
	case "array":
		return Array(nil), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", name)
	}
}

// ParseTypeMap converts a map of field names to type names into a Schema.
// Example: {"city": "string", "days": "integer"}
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema, len(typeMap))
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}
