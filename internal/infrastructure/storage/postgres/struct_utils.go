package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns returns the column names from T's "db" tags, including
// those of embedded structs. Call it once at initialization.
//
// Usage:
//
//	columns := ExtractDBColumns[numbering.Setting]()
//	// ["account_id", "document_type", "pattern", "updated_at", "updated_by"]
func ExtractDBColumns[T any]() []string {
	var zero T
	return columnsOf(reflect.TypeOf(zero))
}

func columnsOf(t reflect.Type) []string {
	meta := metadataFor(t)
	cols := make([]string, 0, len(meta.fields))
	for _, f := range meta.fields {
		cols = append(cols, f.column)
	}
	for _, idx := range meta.embedded {
		cols = append(cols, columnsOf(derefType(t).Field(idx).Type)...)
	}
	return cols
}

type fieldInfo struct {
	index  int
	column string
}

type typeMetadata struct {
	fields   []fieldInfo
	embedded []int
}

// map[reflect.Type]*typeMetadata
var typeCache sync.Map

func derefType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

func metadataFor(t reflect.Type) *typeMetadata {
	t = derefType(t)
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Anonymous {
				meta.embedded = append(meta.embedded, i)
				continue
			}
			tag := field.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			meta.fields = append(meta.fields, fieldInfo{index: i, column: tag})
		}
	}

	typeCache.Store(t, meta)
	return meta
}

// StructToMap converts a struct to a column map using "db" tags.
// Suitable for squirrel's SetMap.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := metadataFor(rv.Type())
	res := make(map[string]any, len(meta.fields))
	for _, f := range meta.fields {
		res[f.column] = rv.Field(f.index).Interface()
	}
	for _, idx := range meta.embedded {
		for k, val := range StructToMap(rv.Field(idx).Interface()) {
			res[k] = val
		}
	}
	return res
}
