package decode

import (
	"fmt"

	"abiFrame/internal/model"
)

// Flatten expands composite values into dot-joined leaf paths, writing into
// dst (allocated when nil). Each composite must have a composite parameter
// with the same name in schema.
func Flatten(dst map[string]interface{}, args *model.Fields, schema []ParamSpec) (map[string]interface{}, error) {
	if dst == nil {
		dst = make(map[string]interface{})
	}
	if args == nil {
		return dst, nil
	}
	if err := flattenInto(dst, "", args, schema); err != nil {
		return nil, err
	}
	return dst, nil
}

func flattenInto(dst map[string]interface{}, prefix string, fields *model.Fields, schema []ParamSpec) error {
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		key := prefix + pair.Key
		switch pair.Value.Kind {
		case model.ScalarKind:
			dst[key] = pair.Value.Scalar
		case model.CompositeKind:
			param, ok := compositeParam(schema, pair.Key)
			if !ok {
				return fmt.Errorf("%w: no composite parameter for %s", ErrSchemaMismatch, key)
			}
			if err := flattenInto(dst, key+".", pair.Value.Fields, param.Components); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown value kind %d for %s", ErrSchemaMismatch, pair.Value.Kind, key)
		}
	}
	return nil
}

func compositeParam(schema []ParamSpec, name string) (ParamSpec, bool) {
	for i, param := range schema {
		if param.Key(i) == name && param.Tag() == Composite {
			return param, true
		}
	}
	return ParamSpec{}, false
}
