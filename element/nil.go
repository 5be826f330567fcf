package element

import "reflect"

// IsNil reports whether an item is null: a nil interface, or a typed nil
// pointer, map, slice, channel, func or interface.
func IsNil(item any) bool {
	if item == nil {
		return true
	}
	switch v := reflect.ValueOf(item); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}
