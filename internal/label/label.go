// Package label provides zero-copy text views over shared byte buffers.
package label

// Buffer is shared backing storage for labels. The bytes must not be
// modified once labels refer to them.
type Buffer struct {
	p []byte
}

// NewBuffer wraps p without copying it.
func NewBuffer(p []byte) *Buffer {
	return &Buffer{p: p}
}

func (b *Buffer) Len() int      { return len(b.p) }
func (b *Buffer) Bytes() []byte { return b.p }

// Label returns a view of b.p[from:edge]. It panics if the range is out of bounds.
func (b *Buffer) Label(from, edge int) Label {
	if from < 0 || edge < from || edge > len(b.p) {
		panic("label: range out of bounds")
	}
	return Label{buf: b, from: int32(from), edge: int32(edge)}
}

// All returns a view of the whole buffer.
func (b *Buffer) All() Label {
	return Label{buf: b, from: 0, edge: int32(len(b.p))}
}

// Label is a view of buf.p[from:edge]. The zero Label is absent.
type Label struct { // 16 bytes
	buf        *Buffer
	from, edge int32
}

// New returns a label owning a buffer holding s.
func New(s string) Label {
	return NewBuffer([]byte(s)).All()
}

// Of returns a label viewing p without copying it.
func Of(p []byte) Label {
	return NewBuffer(p).All()
}

func (l Label) IsAbsent() bool { return l.buf == nil }
func (l Label) IsEmpty() bool  { return l.from == l.edge }
func (l Label) Size() int      { return int(l.edge - l.from) }

// Span returns the offsets of l within its buffer.
func (l Label) Span() (from, edge int) { return int(l.from), int(l.edge) }

// Buffer returns the shared buffer l refers to, or nil if l is absent.
func (l Label) Buffer() *Buffer { return l.buf }

// Bytes returns the viewed bytes. Callers must not modify them.
func (l Label) Bytes() []byte {
	if l.buf == nil {
		return nil
	}
	return l.buf.p[l.from:l.edge]
}

// String copies the viewed bytes into a string.
func (l Label) String() string { return string(l.Bytes()) }

func (l Label) Equal(x Label) bool {
	return l.Size() == x.Size() && string(l.Bytes()) == string(x.Bytes())
}
func (l Label) EqualString(s string) bool {
	return l.Size() == len(s) && string(l.Bytes()) == s
}

func (l Label) EqualFold(x Label) bool {
	p, q := l.Bytes(), x.Bytes()
	if len(p) != len(q) {
		return false
	}
	for i := 0; i < len(p); i++ {
		if lower(p[i]) != lower(q[i]) {
			return false
		}
	}
	return true
}
func (l Label) EqualFoldString(s string) bool {
	p := l.Bytes()
	if len(p) != len(s) {
		return false
	}
	for i := 0; i < len(p); i++ {
		if lower(p[i]) != lower(s[i]) {
			return false
		}
	}
	return true
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 0x20
	}
	return b
}
