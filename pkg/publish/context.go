package publish

import (
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"
)

// Context is the string-keyed state threaded through the publish stages.
// The zero Context is empty and ready to use.
//
// A Context shares its storage when copied; use Clone for an independent
// copy. The runner hands every stage a clone.
type Context struct {
	values map[string]Value
}

// NewContext returns an empty context.
func NewContext() Context {
	return Context{values: make(map[string]Value)}
}

// Get returns the value stored at key.
func (c Context) Get(key string) (Value, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Set stores v at key, replacing any previous value.
func (c *Context) Set(key string, v Value) {
	if c.values == nil {
		c.values = make(map[string]Value)
	}
	c.values[key] = v
}

// Delete removes key and returns the value it held.
func (c *Context) Delete(key string) (Value, bool) {
	v, ok := c.values[key]
	delete(c.values, key)
	return v, ok
}

func (c Context) Len() int { return len(c.values) }

func (c Context) IsEmpty() bool { return len(c.values) == 0 }

// Keys returns the keys in sorted order.
func (c Context) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// All iterates over the entries in key order.
func (c Context) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range c.Keys() {
			if !yield(k, c.values[k]) {
				return
			}
		}
	}
}

// Clone returns a deep copy of c.
func (c Context) Clone() Context {
	out := Context{values: make(map[string]Value, len(c.values))}
	for k, v := range c.values {
		out.values[k] = v.Clone()
	}
	return out
}

// Equal reports whether both contexts hold equal values under the same keys.
func (c Context) Equal(other Context) bool {
	return maps.EqualFunc(c.values, other.values, Value.Equal)
}

// MarshalJSON encodes c as a JSON object.
func (c Context) MarshalJSON() ([]byte, error) {
	if c.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.values)
}

// UnmarshalJSON replaces the content of c with a decoded JSON object.
func (c *Context) UnmarshalJSON(data []byte) error {
	var values map[string]Value
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if values == nil {
		values = make(map[string]Value)
	}
	c.values = values
	return nil
}

// ContextFromMap converts decoded YAML or JSON data into a Context.
func ContextFromMap(m map[string]any) (Context, error) {
	c := NewContext()
	for k, x := range m {
		v, err := ValueOf(x)
		if err != nil {
			return Context{}, fmt.Errorf("%s: %w", k, err)
		}
		c.values[k] = v
	}
	return c, nil
}
