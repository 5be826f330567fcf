// Package mapping converts produced items into the representation an output expects.
package mapping

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"
)

// Mapping is a pure conversion, called once per non-null item in emission order.
type Mapping[OUT any] func(item any) (OUT, error)

func Identity(item any) (any, error) {
	return item, nil
}

// Of asserts the item already has the output type.
func Of[OUT any]() Mapping[OUT] {
	return func(item any) (OUT, error) {
		out, ok := item.(OUT)
		if !ok {
			var zero OUT
			return zero, errors.Errorf("item %v is %T, not %T", item, item, zero)
		}
		return out, nil
	}
}

func String(item any) (string, error) {
	switch v := item.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// Bytes renders the item with String.
func Bytes(item any) ([]byte, error) {
	s, err := String(item)
	return []byte(s), err
}

// Proto encodes the item as a google.protobuf.Value. Items must be made of
// nil, bools, numbers, strings, []any and map[string]any.
func Proto(item any) ([]byte, error) {
	value, err := structpb.NewValue(normalize(item))
	if err != nil {
		return nil, errors.WithMessagef(err, "can't convert %T to protobuf value", item)
	}
	bytes, err := proto.Marshal(value)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to marshal protobuf value")
	}
	return bytes, nil
}

// normalize turns the map[any]any-free shapes yaml produces into what structpb accepts.
func normalize(item any) any {
	switch v := item.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for key, value := range v {
			m[key] = normalize(value)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(v))
		for key, value := range v {
			m[fmt.Sprint(key)] = normalize(value)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, value := range v {
			s[i] = normalize(value)
		}
		return s
	default:
		return item
	}
}

func YAML(item any) ([]byte, error) {
	bytes, err := yaml.Marshal(item)
	if err != nil {
		return nil, errors.WithMessagef(err, "can't marshal %T to yaml", item)
	}
	return bytes, nil
}

// ByName selects a byte mapping by its config name: string, proto or yaml.
func ByName(name string) (Mapping[[]byte], error) {
	switch strings.ToLower(name) {
	case "", "string":
		return Bytes, nil
	case "proto", "protobuf":
		return Proto, nil
	case "yaml":
		return YAML, nil
	default:
		return nil, errors.Errorf("unknown mapping %q", name)
	}
}
