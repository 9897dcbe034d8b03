package keel

import (
	"context"
	"fmt"
	reflectPkg "reflect"

	"github.com/danpasecinic/keel/internal/errdefs"
	"github.com/danpasecinic/keel/internal/reflect"
)

// TagKey is the struct tag FromStruct reads:
//
//	DB    *Database `keel:""`                  // property "DB"
//	Log   *Logger   `keel:"log"`               // property "log"
//	Cache Cache     `keel:",optional"`         // skipped when unsatisfied
//	Repo  Repo      `keel:"repo,component=pg"` // the "pg" component
const TagKey = "keel"

// FromStruct builds the implementation of struct type T (or *T) from its
// tagged fields, which become property slots. Reflection runs once, here.
func FromStruct[T any]() (Implementation, error) {
	t := reflect.TypeOf[T]()
	isPtr := t.Kind() == reflectPkg.Pointer
	structType := t
	if isPtr {
		structType = t.Elem()
	}

	fields, err := reflect.StructFields(structType, TagKey)
	if err != nil {
		return Implementation{}, err
	}

	props := make([]Slot, len(fields))
	for i, f := range fields {
		props[i] = Slot{
			Key:       f.Key,
			Service:   NewService(reflect.TypeKeyOf(f.Type)),
			Component: f.Component,
			Optional:  f.Optional,
		}
	}

	factory := func(_ context.Context, a *Activation) (any, error) {
		ptr := reflectPkg.New(structType)
		for _, f := range fields {
			value, ok := a.Properties[f.Key]
			if !ok || value == nil {
				continue
			}
			if !reflect.Assignable(value, f.Type) {
				return nil, fmt.Errorf("cannot assign %T to field %s of type %s", value, f.Name, f.Type)
			}
			ptr.Elem().Field(f.Index).Set(reflectPkg.ValueOf(value))
		}

		if isPtr {
			return ptr.Interface(), nil
		}
		return ptr.Elem().Interface(), nil
	}

	return Implementation{
		Type:       ServiceOf[T](),
		Properties: props,
		Factory:    factory,
	}, nil
}

// FromConstructor builds an implementation from fn, a function returning
// (T) or (T, error). Parameter i becomes the constructor slot "arg<i>",
// requiring the service of its type.
func FromConstructor(fn any) (Implementation, error) {
	params, out, returnsErr, err := reflect.FuncParams(fn)
	if err != nil {
		return Implementation{}, err
	}

	slots := make([]Slot, len(params))
	for i, p := range params {
		slots[i] = Slot{
			Key:     fmt.Sprintf("arg%d", i),
			Service: NewService(reflect.TypeKeyOf(p)),
		}
	}

	fnVal := reflectPkg.ValueOf(fn)
	factory := func(_ context.Context, a *Activation) (any, error) {
		args := make([]reflectPkg.Value, len(params))
		for i, p := range params {
			var value any
			if i < len(a.Args) {
				value = a.Args[i]
			}
			switch {
			case value == nil:
				args[i] = reflectPkg.Zero(p)
			case reflect.Assignable(value, p):
				args[i] = reflectPkg.ValueOf(value)
			default:
				return nil, fmt.Errorf("cannot pass %T as parameter %d of type %s", value, i, p)
			}
		}

		results := fnVal.Call(args)
		if returnsErr && !results[1].IsNil() {
			return nil, results[1].Interface().(error)
		}
		return results[0].Interface(), nil
	}

	return Implementation{
		Type:        NewService(reflect.TypeKeyOf(out)),
		Constructor: slots,
		Factory:     factory,
	}, nil
}

// ProvideFunc registers constructor fn as name, exposed as the service of its
// result type.
func ProvideFunc(k *Kernel, name string, fn any, opts ...ComponentOption) error {
	impl, err := FromConstructor(fn)
	if err != nil {
		return errInvalidImplementation(name, err)
	}
	return k.AddComponent(name, []Service{impl.Type}, impl, opts...)
}

func MustProvideFunc(k *Kernel, name string, fn any, opts ...ComponentOption) {
	if err := ProvideFunc(k, name, fn, opts...); err != nil {
		panic(err)
	}
}

// ProvideStruct registers T as name with its tagged fields injected.
func ProvideStruct[T any](k *Kernel, name string, opts ...ComponentOption) error {
	impl, err := FromStruct[T]()
	if err != nil {
		return errInvalidImplementation(name, err)
	}
	return k.AddComponent(name, []Service{impl.Type}, impl, opts...)
}

func MustProvideStruct[T any](k *Kernel, name string, opts ...ComponentOption) {
	if err := ProvideStruct[T](k, name, opts...); err != nil {
		panic(err)
	}
}

func errInvalidImplementation(name string, cause error) *Error {
	return errdefs.InvalidDescriptor(name, cause.Error())
}
