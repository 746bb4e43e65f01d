package reflect

import (
	"context"
	"reflect"
	"runtime"

	"github.com/pkg/errors"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Func is an inspected constructor, factory or method. A leading
// context.Context parameter is supplied by Call and is not part of Params.
type Func struct {
	fn          reflect.Value
	name        string
	Params      []reflect.Type
	WithContext bool
	Out         reflect.Type
	WithError   bool
}

func Inspect(fn any) (*Func, error) {
	if fn == nil {
		return nil, errors.New("function is nil")
	}

	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, errors.Errorf("expected a function, got %T", fn)
	}
	return inspectValue(v, funcName(v))
}

func inspectValue(v reflect.Value, name string) (*Func, error) {
	t := v.Type()
	if t.IsVariadic() {
		return nil, errors.Errorf("variadic function %s is not supported", name)
	}

	f := &Func{fn: v, name: name}
	for i := 0; i < t.NumIn(); i++ {
		p := t.In(i)
		if i == 0 && p == contextType {
			f.WithContext = true
			continue
		}
		f.Params = append(f.Params, p)
	}

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			f.WithError = true
		} else {
			f.Out = t.Out(0)
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, errors.Errorf("second result of %s must be error, got %s", name, t.Out(1))
		}
		f.Out = t.Out(0)
		f.WithError = true
	default:
		return nil, errors.Errorf("function %s returns %d values, expected at most 2", name, t.NumOut())
	}

	return f, nil
}

func (f *Func) Name() string {
	return f.name
}

func (f *Func) Call(ctx context.Context, args []any) (any, error) {
	if len(args) != len(f.Params) {
		return nil, errors.Errorf("%s expects %d arguments, got %d", f.name, len(f.Params), len(args))
	}

	in := make([]reflect.Value, 0, len(args)+1)
	if f.WithContext {
		in = append(in, reflect.ValueOf(&ctx).Elem())
	}
	for i, arg := range args {
		v, err := Value(arg, f.Params[i])
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d of %s", i, f.name)
		}
		in = append(in, v)
	}

	out := f.fn.Call(in)

	var err error
	if f.WithError {
		if last := out[len(out)-1]; !last.IsNil() {
			err = last.Interface().(error)
		}
	}
	if f.Out == nil {
		return nil, err
	}
	return out[0].Interface(), err
}

// Value converts a resolved value into something assignable to t.
// Aggregated []any values are converted element-wise into typed slices.
func Value(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	if items, ok := v.([]any); ok && t.Kind() == reflect.Slice {
		s := reflect.MakeSlice(t, 0, len(items))
		for i, item := range items {
			iv, err := Value(item, t.Elem())
			if err != nil {
				return reflect.Value{}, errors.Wrapf(err, "element %d", i)
			}
			s = reflect.Append(s, iv)
		}
		return s, nil
	}

	return reflect.Value{}, errors.Errorf("cannot use %s as %s", TypeName(rv.Type()), TypeName(t))
}

func funcName(v reflect.Value) string {
	if fn := runtime.FuncForPC(v.Pointer()); fn != nil {
		return fn.Name()
	}
	return v.Type().String()
}
