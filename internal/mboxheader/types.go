package mboxheader

import (
	"io"
	"iter"

	"github.com/emurenMRz/mboxparts/internal/label"
)

// Field is one header field. Name compares case-insensitively, Value keeps its bytes as is.
type Field struct {
	Name  label.KeyCI
	Value label.Label
}

// Headers maps case-insensitive field names to values. Fields keep insertion
// order; replacing a field keeps its position.
type Headers struct {
	fields []Field
}

func NewHeaders() *Headers {
	return &Headers{}
}

func (h *Headers) Len() int { return len(h.fields) }

func (h *Headers) index(name string) int {
	hash := label.HashFoldString(name)
	for i := range h.fields {
		if h.fields[i].Name.MatchString(hash, name) {
			return i
		}
	}
	return -1
}

func (h *Headers) indexKey(key label.KeyCI) int {
	for i := range h.fields {
		if h.fields[i].Name.Equal(key) {
			return i
		}
	}
	return -1
}

// Lookup returns the value of the named field.
func (h *Headers) Lookup(name string) (label.Label, bool) {
	if i := h.index(name); i >= 0 {
		return h.fields[i].Value, true
	}
	return label.Label{}, false
}

// Get returns the value of the named field, or an absent label.
func (h *Headers) Get(name string) label.Label {
	value, _ := h.Lookup(name)
	return value
}

// Put sets the field name to value. An existing field with the same name,
// in any case, is replaced.
func (h *Headers) Put(name, value label.Label) {
	key := label.NewKeyCI(name)
	if i := h.indexKey(key); i >= 0 {
		h.fields[i] = Field{Name: key, Value: value}
		return
	}
	h.fields = append(h.fields, Field{Name: key, Value: value})
}

// Set is Put for strings. Both name and value are copied.
func (h *Headers) Set(name, value string) {
	h.Put(label.New(name), label.New(value))
}

// PutAll puts every field of other into h.
func (h *Headers) PutAll(other *Headers) {
	for _, field := range other.fields {
		h.Put(field.Name.Label, field.Value)
	}
}

func (h *Headers) Del(name string) {
	if i := h.index(name); i >= 0 {
		h.fields = append(h.fields[:i], h.fields[i+1:]...)
	}
}

// All yields field names and values with their original casing.
func (h *Headers) All() iter.Seq2[label.Label, label.Label] {
	return func(yield func(label.Label, label.Label) bool) {
		for _, field := range h.fields {
			if !yield(field.Name.Label, field.Value) {
				return
			}
		}
	}
}

// WriteTo writes the fields as "Name: value\n" lines.
func (h *Headers) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, field := range h.fields {
		for _, p := range [][]byte{field.Name.Bytes(), colonSpace, field.Value.Bytes(), newline} {
			n, err := w.Write(p)
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

var (
	colonSpace = []byte(": ")
	newline    = []byte("\n")
)
