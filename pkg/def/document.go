// Package def reads and writes environment documents: ordered JSON or
// YAML objects describing types, and loads them into an inference
// context.
package def

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Object is a document object that remembers the order of its keys.
//
// Values are strings, float64 or int numbers, bools, nil, []any, or
// nested *Object.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{values: map[string]any{}}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	return o.keys
}

func (o *Object) Len() int {
	return len(o.keys)
}

func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// String returns the string stored at key, or "".
func (o *Object) String(key string) string {
	s, _ := o.values[key].(string)
	return s
}

// Object returns the object stored at key, or nil.
func (o *Object) Object(key string) *Object {
	obj, _ := o.values[key].(*Object)
	return obj
}

// Strings returns the strings in the array stored at key, skipping other
// elements.
func (o *Object) Strings(key string) []string {
	arr, _ := o.values[key].([]any)
	var out []string
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Set stores v at key. New keys are appended; existing keys keep their
// position.
func (o *Object) Set(key string, v any) {
	if o.values == nil {
		o.values = map[string]any{}
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Ensure returns the object at key, creating it if missing.
func (o *Object) Ensure(key string) *Object {
	if obj := o.Object(key); obj != nil {
		return obj
	}
	obj := NewObject()
	o.Set(key, obj)
	return obj
}

func (o *Object) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
}

// Sort orders the keys alphabetically. Nested objects keep their order.
func (o *Object) Sort() {
	sort.Strings(o.keys)
}

// ReadFile decodes an environment document, as YAML if the file has a
// .yaml or .yml extension and as JSON otherwise.
func ReadFile(path string) (*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open definitions")
	}
	defer f.Close()

	var doc *Object
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = DecodeYAML(f)
	default:
		doc, err = DecodeJSON(f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return doc, nil
}
