package container

import "reflect"

// Key identifies a binding. It is either a type key or a name key, never both.
//
// Name keys let a binding be registered before the package that defines its
// target type is needed: the factory does the loading, the key does not.
//
//	container.KeyFor[*UserRepository]()     // type:*repo.UserRepository
//	container.TypeKey((*Mailer)(nil))       // type:mail.Mailer (interface)
//	container.Name("HTTPServerFactory")     // name:HTTPServerFactory
type Key struct {
	typ  reflect.Type
	name string
}

// KeyFor returns the type key for T. T may be an interface type.
func KeyFor[T any]() Key {
	return Key{typ: reflect.TypeFor[T]()}
}

// TypeKey returns the type key for v. A nil pointer to an interface, such as
// (*Mailer)(nil), yields the interface type itself; any other value yields its
// dynamic type.
func TypeKey(v any) Key {
	t := reflect.TypeOf(v)
	if t == nil {
		return Key{}
	}
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Interface {
		t = t.Elem()
	}
	return Key{typ: t}
}

// Name returns a name key.
func Name(name string) Key {
	return Key{name: name}
}

// IsZero reports whether k identifies nothing.
func (k Key) IsZero() bool { return k.typ == nil && k.name == "" }

// IsNamed reports whether k is a name key.
func (k Key) IsNamed() bool { return k.typ == nil && k.name != "" }

// Type returns the reflect.Type of a type key, or nil for a name key.
func (k Key) Type() reflect.Type { return k.typ }

// String renders the key as "type:<type>" or "name:<name>".
func (k Key) String() string {
	switch {
	case k.typ != nil:
		return "type:" + k.typ.String()
	case k.name != "":
		return "name:" + k.name
	default:
		return "<zero key>"
	}
}
