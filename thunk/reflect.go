package thunk

import (
	"context"
	"fmt"
	"reflect"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/shape"
)

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// RegisterFunc builds a wrapper for the func type of sample and registers
// it under the key NewCallback derives for that type.
func (p *Pool) RegisterFunc(sample any) (shape.Key, error) {
	key := shape.KeyOf(sample, p.opts.convention)
	if key == "" {
		return "", errors.TypeMismatch(errors.PhaseRegister, typeName(sample), "sample must be a func")
	}
	w, err := ReflectWrapper(reflect.TypeOf(sample))
	if err != nil {
		return "", err
	}
	w.Name = string(key)
	if err := p.registry.Register(key, w); err != nil {
		return "", err
	}
	return key, nil
}

// ReflectWrapper builds a generic wrapper for a func type whose parameters
// and result are scalars. An optional leading context.Context receives the
// invocation context. At most one result is allowed.
func ReflectWrapper(t reflect.Type) (shape.Wrapper, error) {
	if t == nil || t.Kind() != reflect.Func {
		return shape.Wrapper{}, errors.TypeMismatch(errors.PhaseRegister, fmt.Sprint(t), "not a func type")
	}
	if t.IsVariadic() {
		return shape.Wrapper{}, errors.TypeMismatch(errors.PhaseRegister, t.String(), "variadic funcs are not supported")
	}
	if t.NumOut() > 1 {
		return shape.Wrapper{}, errors.TypeMismatch(errors.PhaseRegister, t.String(), "at most one result is supported")
	}

	first := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		first = 1
	}

	params := make([]api.ValueType, 0, t.NumIn()-first)
	in := make([]reflect.Type, 0, t.NumIn()-first)
	for i := first; i < t.NumIn(); i++ {
		vt, ok := valueType(t.In(i))
		if !ok {
			return shape.Wrapper{}, errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
				GoType(t.String()).
				Detail("param %d has unsupported type %s", i, t.In(i)).
				Build()
		}
		params = append(params, vt)
		in = append(in, t.In(i))
	}

	var results []api.ValueType
	if t.NumOut() == 1 {
		vt, ok := valueType(t.Out(0))
		if !ok {
			return shape.Wrapper{}, errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
				GoType(t.String()).
				Detail("result has unsupported type %s", t.Out(0)).
				Build()
		}
		results = []api.ValueType{vt}
	}

	withCtx := first == 1
	fn := func(ctx context.Context, stack []uint64) {
		target := reflect.ValueOf(CurrentDelegate(ctx))
		args := make([]reflect.Value, 0, len(in)+first)
		if withCtx {
			args = append(args, reflect.ValueOf(&ctx).Elem())
		}
		for i, pt := range in {
			args = append(args, decodeWord(stack[i], pt))
		}
		out := target.Call(args)
		if len(out) == 1 {
			stack[0] = encodeWord(out[0])
		}
	}

	return shape.Wrapper{
		Func:    fn,
		Name:    t.String(),
		Params:  params,
		Results: results,
	}, nil
}

func valueType(t reflect.Type) (api.ValueType, bool) {
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return api.ValueTypeI32, true
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return api.ValueTypeI64, true
	case reflect.Float32:
		return api.ValueTypeF32, true
	case reflect.Float64:
		return api.ValueTypeF64, true
	default:
		return 0, false
	}
}

func decodeWord(w uint64, t reflect.Type) reflect.Value {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		v.SetBool(api.DecodeU32(w) != 0)
	case reflect.Int8, reflect.Int16, reflect.Int32:
		v.SetInt(int64(api.DecodeI32(w)))
	case reflect.Int, reflect.Int64:
		v.SetInt(int64(w))
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		v.SetUint(uint64(api.DecodeU32(w)))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		v.SetUint(w)
	case reflect.Float32:
		v.SetFloat(float64(api.DecodeF32(w)))
	case reflect.Float64:
		v.SetFloat(api.DecodeF64(w))
	}
	return v
}

func encodeWord(v reflect.Value) uint64 {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return api.EncodeI32(int32(v.Int()))
	case reflect.Int, reflect.Int64:
		return api.EncodeI64(v.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return api.EncodeU32(uint32(v.Uint()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return v.Uint()
	case reflect.Float32:
		return api.EncodeF32(float32(v.Float()))
	case reflect.Float64:
		return api.EncodeF64(v.Float())
	default:
		return 0
	}
}
