package formatters

import (
	"fmt"
	"os"
	"reflect"

	"github.com/pkg/errors"
)

var hostname string

func init() {
	// Cache values that don't change
	hostname, _ = os.Hostname()
}

// getHostname returns the cached hostname
func getHostname() string {
	return hostname
}

func typeName(v interface{}) string {
	return fmt.Sprintf("%T", v)
}

func fmtFrame(fr errors.Frame) string {
	return fmt.Sprintf("%+v", fr)
}

// stringify renders every element of a slice with %v. Used when a value
// cannot be encoded as JSON (channels, functions, NaN).
func stringify(value interface{}) interface{} {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice {
		return fmt.Sprintf("%v", value)
	}
	out := make([]string, v.Len())
	for i := range out {
		out[i] = fmt.Sprintf("%v", v.Index(i).Interface())
	}
	return out
}

// safeValue creates a copy of a value that handles circular references
func safeValue(value interface{}) interface{} {
	return safeValueCopy(value, make(map[uintptr]bool), 0)
}

// safeValueCopy recursively copies values with circular reference detection
func safeValueCopy(value interface{}, visited map[uintptr]bool, depth int) interface{} {
	// Limit recursion depth to prevent stack overflow
	const maxDepth = 10
	if depth > maxDepth {
		return "[max depth exceeded]"
	}

	if value == nil {
		return nil
	}
	if err, ok := value.(error); ok {
		return err.Error()
	}
	if s, ok := value.(fmt.Stringer); ok {
		return s.String()
	}

	v := reflect.ValueOf(value)

	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		addr := v.Pointer()
		if visited[addr] {
			return "[circular reference]"
		}
		visited[addr] = true
		defer delete(visited, addr)

		result := make(map[string]interface{})
		iter := v.MapRange()
		for iter.Next() {
			result[fmt.Sprint(iter.Key().Interface())] = safeValueCopy(iter.Value().Interface(), visited, depth+1)
		}
		return result

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice {
			if v.IsNil() {
				return nil
			}
			addr := v.Pointer()
			if visited[addr] {
				return "[circular reference]"
			}
			visited[addr] = true
			defer delete(visited, addr)
		}

		result := make([]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			result[i] = safeValueCopy(v.Index(i).Interface(), visited, depth+1)
		}
		return result

	case reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		addr := v.Pointer()
		if visited[addr] {
			return "[circular reference]"
		}
		visited[addr] = true
		defer delete(visited, addr)

		return safeValueCopy(v.Elem().Interface(), visited, depth+1)

	case reflect.Struct:
		// Convert struct to map for JSON serialization
		result := make(map[string]interface{})
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := t.Field(i)
			if field.IsExported() {
				result[field.Name] = safeValueCopy(v.Field(i).Interface(), visited, depth+1)
			}
		}
		return result

	case reflect.Func, reflect.Chan:
		return fmt.Sprintf("[%s]", v.Kind())

	default:
		return value
	}
}
