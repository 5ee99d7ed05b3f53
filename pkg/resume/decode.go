package resume

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

var stringSliceType = reflect.TypeOf([]string(nil))

// FromMap decodes a loosely-typed extraction payload into a Record.
// List fields accept either a list or a raw text block; scalar fields given
// as a list take the first non-empty entry. Unknown keys are ignored.
func FromMap(data map[string]any) (Record, error) {
	var r Record
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       looseFieldHook,
		WeaklyTypedInput: true,
		Result:           &r,
		TagName:          "json",
	})
	if err != nil {
		return Record{}, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return Record{}, fmt.Errorf("decode resume: %w", err)
	}

	for _, f := range ScalarFields {
		p := r.scalar(f)
		*p = strings.TrimSpace(*p)
	}
	for _, f := range ListFields {
		p := r.list(f)
		*p = normalizeList(*p)
	}
	return r, nil
}

func looseFieldHook(from, to reflect.Type, data any) (any, error) {
	switch {
	case data == nil:
		return data, nil
	case from.Kind() == reflect.String && to == stringSliceType:
		return SplitLines(data.(string)), nil //nolint:forcetypeassert // kind checked above
	case from.Kind() == reflect.Slice && to.Kind() == reflect.String:
		v := reflect.ValueOf(data)
		for i := range v.Len() {
			if s := strings.TrimSpace(fmt.Sprint(v.Index(i).Interface())); s != "" {
				return s, nil
			}
		}
		return "", nil
	case from.Kind() == reflect.Slice && to == stringSliceType:
		v := reflect.ValueOf(data)
		out := make([]string, 0, v.Len())
		for i := range v.Len() {
			elem := v.Index(i).Interface()
			if elem == nil {
				continue
			}
			out = append(out, fmt.Sprint(elem))
		}
		return out, nil
	default:
		return data, nil
	}
}
