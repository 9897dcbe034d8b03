package reflect

import (
	"fmt"
	"reflect"
	"strings"
)

// Field describes an injectable struct field discovered from its tag.
//
//	DB    *Database `keel:""`                  // key "DB"
//	Log   *Logger   `keel:"log"`               // key "log"
//	Cache Cache     `keel:",optional"`         // optional
//	Repo  Repo      `keel:"repo,component=pg"` // resolve the "pg" component
type Field struct {
	Name      string
	Index     int
	Type      reflect.Type
	Key       string
	Component string
	Optional  bool
}

// StructFields lists the tagged fields of struct type t (or *struct).
func StructFields(t reflect.Type, tag string) ([]Field, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct type", t)
	}

	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		value, ok := sf.Tag.Lookup(tag)
		if !ok || value == "-" {
			continue
		}
		if !sf.IsExported() {
			return nil, fmt.Errorf("field %s.%s is tagged but unexported", t.Name(), sf.Name)
		}

		f := Field{
			Name:  sf.Name,
			Index: i,
			Type:  sf.Type,
			Key:   sf.Name,
		}

		parts := strings.Split(value, ",")
		if parts[0] != "" {
			f.Key = parts[0]
		}
		for _, opt := range parts[1:] {
			opt = strings.TrimSpace(opt)
			switch {
			case opt == "optional":
				f.Optional = true
			case strings.HasPrefix(opt, "component="):
				f.Component = strings.TrimPrefix(opt, "component=")
			case opt == "":
			default:
				return nil, fmt.Errorf("field %s.%s: unknown tag option %q", t.Name(), sf.Name, opt)
			}
		}

		fields = append(fields, f)
	}

	return fields, nil
}

// FuncParams returns the parameter and result types of constructor fn. A
// constructor returns one value, optionally followed by an error.
func FuncParams(fn any) (params []reflect.Type, out reflect.Type, returnsErr bool, err error) {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func {
		return nil, nil, false, fmt.Errorf("constructor must be a function, got %T", fn)
	}
	if ft.IsVariadic() {
		return nil, nil, false, fmt.Errorf("variadic constructor %s is not supported", ft)
	}

	errType := reflect.TypeOf((*error)(nil)).Elem()
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errType {
			return nil, nil, false, fmt.Errorf("second result of %s must be error", ft)
		}
		returnsErr = true
	default:
		return nil, nil, false, fmt.Errorf("constructor %s must return (T) or (T, error)", ft)
	}

	params = make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}
	return params, ft.Out(0), returnsErr, nil
}
