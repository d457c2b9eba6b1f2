// Package multipart models the parts of a multipart MIME entity.
//
// A Part holds a header map and a description of where its body lives: a
// shared input stream, an in-memory copy of the same bytes, or both, together
// with the body size when it is known in advance. The Part never reads from
// the stream itself.
package multipart

import (
	"errors"
	"fmt"
	"log"
	"mime"

	"github.com/emurenMRz/mboxparts/internal/iostream"
	"github.com/emurenMRz/mboxparts/internal/label"
	"github.com/emurenMRz/mboxparts/internal/mboxheader"
)

// UnknownSize is the known size of a body whose length is not known ahead of reading it.
const UnknownSize int64 = -1

// ErrSizeMismatch is returned when in-memory data disagrees with the known size.
var ErrSizeMismatch = errors.New("multipart: in-memory data length does not match known size")

// Part is one part of a multipart entity.
type Part struct {
	name     label.Label
	filename label.Label
	headers  *mboxheader.Headers

	stream    *iostream.Shared
	inMemory  label.Label
	knownSize int64
}

// New returns a part with the given headers and no body description yet.
func New(headers *mboxheader.Headers) *Part {
	if headers == nil {
		headers = mboxheader.NewHeaders()
	}
	p := &Part{headers: headers, knownSize: UnknownSize}
	p.parseDisposition()
	return p
}

// NewWithData returns a part with the given headers and body description.
func NewWithData(headers *mboxheader.Headers, stream *iostream.Shared, inMemory label.Label, knownSize int64) (*Part, error) {
	p := New(headers)
	if err := p.SetDataInfo(stream, inMemory, knownSize); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Part) parseDisposition() {
	value := p.headers.Get("Content-Disposition")
	if value.IsAbsent() {
		return
	}
	_, params, err := mime.ParseMediaType(value.String())
	if err != nil {
		log.Printf("Bad Content-Disposition %q: %v", value.String(), err)
		return
	}
	if name, ok := params["name"]; ok {
		p.name = label.New(decodeWords(name))
	}
	if filename, ok := params["filename"]; ok {
		p.filename = label.New(decodeWords(filename))
	}
}

// SetDataInfo replaces the body description. The part takes its own
// reference on stream and releases the one it held before. A negative
// knownSize means the size is unknown. If inMemory is present and its length
// differs from a known size, the call fails with ErrSizeMismatch and the
// previous description is kept.
func (p *Part) SetDataInfo(stream *iostream.Shared, inMemory label.Label, knownSize int64) error {
	if knownSize < 0 {
		knownSize = UnknownSize
	}
	if !inMemory.IsAbsent() && knownSize != UnknownSize && int64(inMemory.Size()) != knownSize {
		return fmt.Errorf("%w: %d bytes in memory, known size %d", ErrSizeMismatch, inMemory.Size(), knownSize)
	}
	if stream != nil {
		stream.Retain()
	}
	old := p.stream
	p.stream, p.inMemory, p.knownSize = stream, inMemory, knownSize
	if old != nil {
		return old.Release()
	}
	return nil
}

// Close releases the part's reference on its stream. Other holders of the
// stream keep it alive.
func (p *Part) Close() error {
	if p.stream == nil {
		return nil
	}
	s := p.stream
	p.stream = nil
	return s.Release()
}

// Name returns the name parameter of Content-Disposition, or an absent label.
func (p *Part) Name() label.Label { return p.name }

// Filename returns the filename parameter of Content-Disposition, or an absent label.
func (p *Part) Filename() label.Label { return p.filename }

func (p *Part) Headers() *mboxheader.Headers { return p.headers }

// Header returns the named header value, or an absent label.
func (p *Part) Header(name string) label.Label { return p.headers.Get(name) }

// InputStream returns the body stream, or nil. The returned stream is not
// retained for the caller.
func (p *Part) InputStream() *iostream.Shared { return p.stream }

// InMemoryData returns the buffered body, or an absent label. A part with a
// stream may still have no buffered copy.
func (p *Part) InMemoryData() label.Label { return p.inMemory }

// KnownSize returns the body size, or UnknownSize.
func (p *Part) KnownSize() int64 { return p.knownSize }
