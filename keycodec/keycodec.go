// Package keycodec derives the string keys used by sessioncache.
//
// Two shapes exist:
//
//	<namespace>:<id>                          - entity keys (Sessions)
//	<type>_<method>_<arg1>_<arg2>_..._<argN>  - call keys (Facade)
//
// A call with zero arguments still ends with the delimiter ("<type>_<method>_").
// Existing cached data depends on that shape, so it must stay.
package keycodec

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	// EntitySeparator joins namespace and id.
	EntitySeparator = ":"
	// Delimiter joins type, method and every argument of a call key.
	Delimiter = "_"
	// Null is how absent arguments are rendered.
	Null = "null"
)

// Entity returns "<namespace>:<id>".
func Entity(namespace, id string) string {
	return namespace + EntitySeparator + id
}

// EntityID strips "<namespace>:" from key. ok is false when key is not in namespace.
func EntityID(namespace, key string) (id string, ok bool) {
	prefix := namespace + EntitySeparator
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	return key[len(prefix):], true
}

// Call returns "<typeName>_<methodName>_" followed by the rendered args joined by "_".
func Call(typeName, methodName string, args ...any) string {
	var b strings.Builder
	b.Grow(len(typeName) + len(methodName) + 2 + 8*len(args))
	b.WriteString(typeName)
	b.WriteString(Delimiter)
	b.WriteString(methodName)
	b.WriteString(Delimiter)
	for i, a := range args {
		if i > 0 {
			b.WriteString(Delimiter)
		}
		b.WriteString(Render(a))
	}
	return b.String()
}

// Render prints a single argument the way Call does.
// nil and nil-valued pointers, maps, slices, funcs, chans and interfaces print as "null".
func Render(arg any) string {
	if isNil(arg) {
		return Null
	}
	switch v := arg.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func isNil(arg any) bool {
	if arg == nil {
		return true
	}
	rv := reflect.ValueOf(arg)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
