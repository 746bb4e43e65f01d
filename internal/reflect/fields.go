package reflect

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

func SetField(target any, name string, value any) error {
	if !IsStructPointer(reflect.TypeOf(target)) || IsNil(target) {
		return errors.Errorf("cannot inject field %s into %T", name, target)
	}

	v := reflect.ValueOf(target)
	f := v.Elem().FieldByName(name)
	if !f.IsValid() {
		return errors.Errorf("field %s not found in %s", name, TypeName(v.Type()))
	}
	if !f.CanSet() {
		return errors.Errorf("field %s of %s is not settable", name, TypeName(v.Type()))
	}

	fv, err := Value(value, f.Type())
	if err != nil {
		return errors.Wrapf(err, "field %s", name)
	}
	f.Set(fv)
	return nil
}

func Method(target any, name string) (*Func, error) {
	if target == nil {
		return nil, errors.Errorf("cannot look up method %s on nil", name)
	}

	m := reflect.ValueOf(target).MethodByName(name)
	if !m.IsValid() {
		return nil, errors.Errorf("method %s not found in %T", name, target)
	}
	return inspectValue(m, TypeName(reflect.TypeOf(target))+"."+name)
}

// NewPlaceholder allocates the handle handed out while t is still under
// construction. t must be a pointer to a struct.
func NewPlaceholder(t reflect.Type) reflect.Value {
	return reflect.New(t.Elem())
}

// Patch copies the constructed value into the placeholder so every earlier
// holder of the handle observes the final object.
func Patch(placeholder reflect.Value, value any) error {
	v := reflect.ValueOf(value)
	if !v.IsValid() || v.Type() != placeholder.Type() {
		return errors.Errorf("cannot patch %s with %T", TypeName(placeholder.Type()), value)
	}
	if v.IsNil() {
		return errors.Errorf("cannot patch %s with nil", TypeName(placeholder.Type()))
	}

	placeholder.Elem().Set(v.Elem())
	return nil
}

type Field struct {
	Name     string
	Type     reflect.Type
	Token    string
	Named    string
	Optional bool
}

// TaggedFields lists the exported fields of the struct behind t carrying
// the tag key. Tag values are comma separated: "optional", "name=x",
// "token=x".
func TaggedFields(t reflect.Type, key string) ([]Field, error) {
	if !IsStructPointer(t) {
		return nil, errors.Errorf("%s is not a pointer to a struct", TypeName(t))
	}

	st := t.Elem()
	var fields []Field
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		tag, ok := sf.Tag.Lookup(key)
		if !ok {
			continue
		}
		if !sf.IsExported() {
			return nil, errors.Errorf("field %s of %s is tagged but unexported", sf.Name, TypeName(t))
		}

		f := Field{Name: sf.Name, Type: sf.Type}
		for _, part := range strings.Split(tag, ",") {
			part = strings.TrimSpace(part)
			name, value, _ := strings.Cut(part, "=")
			switch name {
			case "":
			case "optional":
				f.Optional = true
			case "name":
				f.Named = value
			case "token":
				f.Token = value
			default:
				return nil, errors.Errorf("unknown option %q in tag of field %s", name, sf.Name)
			}
		}
		fields = append(fields, f)
	}
	return fields, nil
}
