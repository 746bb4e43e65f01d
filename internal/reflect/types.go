package reflect

import (
	"reflect"
	"strconv"
	"sync"
)

var typeNameCache sync.Map

func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func TypeNameOf[T any]() string {
	return TypeName(TypeOf[T]())
}

func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if cached, ok := typeNameCache.Load(t); ok {
		return cached.(string)
	}

	name := buildTypeName(t)
	typeNameCache.Store(t, name)
	return name
}

func buildTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + buildTypeName(t.Elem())
	case reflect.Slice:
		return "[]" + buildTypeName(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + buildTypeName(t.Elem())
	case reflect.Map:
		return "map[" + buildTypeName(t.Key()) + "]" + buildTypeName(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + buildTypeName(t.Elem())
		case reflect.SendDir:
			return "chan<- " + buildTypeName(t.Elem())
		default:
			return "chan " + buildTypeName(t.Elem())
		}
	case reflect.Func:
		return t.String()
	default:
		if t.PkgPath() != "" {
			return t.PkgPath() + "." + t.Name()
		}
		if t.Name() == "" {
			return t.String()
		}
		return t.Name()
	}
}

func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// IsStructPointer reports whether t can back a placeholder handle.
func IsStructPointer(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct
}

func Comparable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Comparable()
}
