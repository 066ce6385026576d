package decode

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"abiFrame/internal/model"
)

// toValue converts a go-ethereum unpacked value into the tagged Value model,
// driven by the ABI type rather than the Go type.
func toValue(t abi.Type, v interface{}) (model.Value, error) {
	if t.T == abi.TupleTy {
		fields, err := tupleFields(t, reflect.ValueOf(v))
		if err != nil {
			return model.Value{}, err
		}
		return model.CompositeValue(fields), nil
	}

	leaf, err := normalize(t, reflect.ValueOf(v))
	if err != nil {
		return model.Value{}, err
	}
	return model.ScalarValue(leaf), nil
}

func tupleFields(t abi.Type, rv reflect.Value) (*model.Fields, error) {
	rv = reflect.Indirect(rv)
	if rv.Kind() != reflect.Struct || rv.NumField() != len(t.TupleElems) {
		return nil, fmt.Errorf("%w: tuple %s decoded as %s", ErrSchemaMismatch, t.String(), rv.Kind())
	}

	fields := model.NewFields()
	for i, elem := range t.TupleElems {
		val, err := toValue(*elem, rv.Field(i).Interface())
		if err != nil {
			return nil, err
		}
		fields.Set(t.TupleRawNames[i], val)
	}
	return fields, nil
}

// tupleMap renders a tuple nested inside an array as a plain name->value map.
func tupleMap(t abi.Type, rv reflect.Value) (map[string]interface{}, error) {
	rv = reflect.Indirect(rv)
	if rv.Kind() != reflect.Struct || rv.NumField() != len(t.TupleElems) {
		return nil, fmt.Errorf("%w: tuple %s decoded as %s", ErrSchemaMismatch, t.String(), rv.Kind())
	}

	out := make(map[string]interface{}, len(t.TupleElems))
	for i, elem := range t.TupleElems {
		val, err := normalize(*elem, rv.Field(i))
		if err != nil {
			return nil, err
		}
		out[t.TupleRawNames[i]] = val
	}
	return out, nil
}

func normalize(t abi.Type, rv reflect.Value) (interface{}, error) {
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: missing value for %s", ErrSchemaMismatch, t.String())
	}

	switch t.T {
	case abi.IntTy, abi.UintTy:
		return integerString(rv)
	case abi.BoolTy:
		return rv.Bool(), nil
	case abi.StringTy:
		return rv.String(), nil
	case abi.AddressTy:
		addr, ok := rv.Interface().(common.Address)
		if !ok {
			return nil, fmt.Errorf("%w: address decoded as %s", ErrSchemaMismatch, rv.Type())
		}
		return addr.Hex(), nil
	case abi.BytesTy:
		return hexutil.Encode(rv.Bytes()), nil
	case abi.FixedBytesTy, abi.FunctionTy, abi.HashTy:
		buf := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(buf), rv)
		return hexutil.Encode(buf), nil
	case abi.SliceTy, abi.ArrayTy:
		out := make([]interface{}, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			var (
				item interface{}
				err  error
			)
			if t.Elem.T == abi.TupleTy {
				item, err = tupleMap(*t.Elem, rv.Index(i))
			} else {
				item, err = normalize(*t.Elem, rv.Index(i))
			}
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case abi.TupleTy:
		return tupleMap(t, rv)
	default:
		return fmt.Sprint(rv.Interface()), nil
	}
}

func integerString(rv reflect.Value) (string, error) {
	if n, ok := rv.Interface().(*big.Int); ok {
		if n == nil {
			return "0", nil
		}
		return n.String(), nil
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	default:
		return "", fmt.Errorf("%w: integer decoded as %s", ErrSchemaMismatch, rv.Type())
	}
}
