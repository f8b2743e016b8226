// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mapper

import (
	"encoding"
	"reflect"
	"strings"
	"time"

	"github.com/z5labs/restkit/apierror"

	"github.com/go-viper/mapstructure/v2"
)

// StructMapper maps wire data to and from values of type T using
// the json struct tags of T.
//
// Scalars are weakly typed so query strings like "42" decode into
// numeric fields. RFC 3339 strings decode into [time.Time] fields and
// any other string into fields implementing [encoding.TextUnmarshaler].
type StructMapper[T any] struct {
	name string
}

// NewStructMapper returns a [StructMapper] which injects entities
// under the given request attribute name.
func NewStructMapper[T any](name string) StructMapper[T] {
	return StructMapper[T]{name: name}
}

// Name implements the [RequestMapper] interface.
func (m StructMapper[T]) Name() string {
	return m.name
}

// MapToEntity implements the [Denormalizer] interface. It always
// returns a *T, even for nil data.
func (m StructMapper[T]) MapToEntity(data any) (any, error) {
	var v T
	if data == nil {
		return &v, nil
	}

	err := decode(data, &v)
	if err != nil {
		return nil, &apierror.InvalidDataError{Message: err.Error()}
	}
	return &v, nil
}

// MapFromEntity implements the [Normalizer] interface.
func (m StructMapper[T]) MapFromEntity(entity any) (any, error) {
	return m.MapFromEntityContext(entity, Context{})
}

// MapFromEntityContext implements the [ContextNormalizer] interface.
// Values implementing [encoding.TextMarshaler], such as [time.Time],
// are written as strings.
func (m StructMapper[T]) MapFromEntityContext(entity any, c Context) (any, error) {
	out, err := toWire(reflect.ValueOf(entity))
	if err != nil {
		return nil, err
	}
	return Project(out, c.Fields), nil
}

var textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

// toWire converts entity values into maps, slices and scalars keyed
// by json field names.
func toWire(rv reflect.Value) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}
	if rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
	}
	if rv.Type().Implements(textMarshalerType) {
		b, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return toWire(rv.Elem())
	case reflect.Struct:
		out := make(map[string]any, rv.NumField())
		err := structToWire(rv, out)
		if err != nil {
			return nil, err
		}
		return out, nil
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Interface(), nil
		}
		fallthrough
	case reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			item, err := toWire(rv.Index(i))
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return items, nil
	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Key().Kind() != reflect.String {
			return rv.Interface(), nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			v, err := toWire(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = v
		}
		return out, nil
	default:
		return rv.Interface(), nil
	}
}

// structToWire writes the exported fields of rv into out. Untagged
// embedded structs are flattened like encoding/json does.
func structToWire(rv reflect.Value, out map[string]any) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		fv := rv.Field(i)
		if field.Anonymous && name == "" && field.IsExported() {
			for fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					break
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct && !fv.Type().Implements(textMarshalerType) {
				err := structToWire(fv, out)
				if err != nil {
					return err
				}
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if strings.Contains(opts, "omitempty") && fv.IsZero() {
			continue
		}

		v, err := toWire(rv.Field(i))
		if err != nil {
			return err
		}
		out[name] = v
	}
	return nil
}

func decode(input, output any) error {
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       hook,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
