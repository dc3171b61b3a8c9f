// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"reflect"
	"strings"
)

// sensitiveKeywords mark field and variable names whose values are never
// printed.
var sensitiveKeywords = []string{
	"password",
	"secret",
	"token",
	"deviceid",
	"device_id",
}

// MaskSecrets renders data as maps and slices with sensitive fields
// replaced by "***". Struct fields are keyed by their yaml tag name.
func MaskSecrets(data any) any {
	if data == nil {
		return nil
	}
	val := reflect.ValueOf(data)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		result := make(map[string]any, val.Len())
		iter := val.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			result[key] = maskValue(key, iter.Value())
		}
		return result
	case reflect.Slice, reflect.Array:
		result := make([]any, val.Len())
		for i := range result {
			result[i] = MaskSecrets(val.Index(i).Interface())
		}
		return result
	case reflect.Struct:
		if _, ok := val.Interface().(interface{ String() string }); ok {
			return data
		}
		result := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			name := yamlName(field)
			if name == "-" {
				continue
			}
			result[name] = maskValue(field.Name, val.Field(i))
		}
		return result
	default:
		if s, ok := val.Interface().(interface{ String() string }); ok {
			return s.String()
		}
		return val.Interface()
	}
}

func maskValue(name string, v reflect.Value) any {
	if isSensitiveKey(name) {
		if v.Kind() == reflect.String && v.String() == "" {
			return ""
		}
		return "***"
	}
	return MaskSecrets(v.Interface())
}

func yamlName(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

// isSensitiveKey checks if a key name contains any sensitive keyword.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}
