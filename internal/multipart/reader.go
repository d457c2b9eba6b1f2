package multipart

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"mime"
	stdmultipart "mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"sort"
	"strings"

	"github.com/emurenMRz/mboxparts/internal/iostream"
	"github.com/emurenMRz/mboxparts/internal/label"
	"github.com/emurenMRz/mboxparts/internal/mboxheader"
)

// DefaultMaxInMemory is the body size up to which parts are buffered.
const DefaultMaxInMemory = 1 << 20

// maxInMemoryLimit keeps buffered bodies within label offsets.
const maxInMemoryLimit = math.MaxInt32 - 1

// ErrNoBoundary is returned for a multipart entity without a boundary parameter.
var ErrNoBoundary = errors.New("multipart: missing boundary")

type Config struct {
	// MaxInMemory is the largest body kept in memory. Larger bodies are
	// streamed. Zero or less means DefaultMaxInMemory. Values above
	// math.MaxInt32-1 are capped.
	MaxInMemory int64
}

func (c Config) maxInMemory() int64 {
	if c.MaxInMemory <= 0 {
		return DefaultMaxInMemory
	}
	return min(c.MaxInMemory, maxInMemoryLimit)
}

// Reader produces the parts of a multipart body in order.
type Reader struct {
	mr  *stdmultipart.Reader
	cfg Config
	cur *iostream.Shared // reader's reference on the last streamed part
}

func NewReader(r io.Reader, boundary string, cfg Config) *Reader {
	return &Reader{mr: stdmultipart.NewReader(r, boundary), cfg: cfg}
}

// NextPart returns the next part, or io.EOF after the last one.
// Transfer encodings are removed from the body. Bodies up to
// Config.MaxInMemory are buffered and also offered as a stream; larger bodies
// are only streamed, with an unknown size, and become unreadable once
// NextPart is called again.
func (r *Reader) NextPart() (*Part, error) {
	if err := r.releaseCurrent(); err != nil {
		log.Printf("Error releasing part stream: %v", err)
	}
	raw, err := r.mr.NextRawPart()
	if err != nil {
		return nil, err
	}
	p, stream, err := newPart(headersOf(raw.Header), raw, r.cfg)
	if err != nil {
		return nil, err
	}
	r.cur = stream
	return p, nil
}

// Close releases the reader's reference on the last streamed part.
func (r *Reader) Close() error {
	return r.releaseCurrent()
}

func (r *Reader) releaseCurrent() error {
	if r.cur == nil {
		return nil
	}
	s := r.cur
	r.cur = nil
	return s.Release()
}

// newPart describes body in a new part. For a streamed body the caller
// receives its own reference on the stream and must release it.
func newPart(headers *mboxheader.Headers, body io.Reader, cfg Config) (*Part, *iostream.Shared, error) {
	body = decodeTransfer(headers, body)
	limit := cfg.maxInMemory()

	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, nil, fmt.Errorf("reading part body: %w", err)
	}

	p := New(headers)
	if int64(len(data)) <= limit {
		stream := iostream.Share(bytes.NewReader(data))
		defer stream.Release()
		if err := p.SetDataInfo(stream, label.Of(data), int64(len(data))); err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	}

	stream := iostream.Share(io.MultiReader(bytes.NewReader(data), body))
	if err := p.SetDataInfo(stream, label.Label{}, UnknownSize); err != nil {
		return nil, nil, err
	}
	return p, stream, nil
}

func decodeTransfer(headers *mboxheader.Headers, body io.Reader) io.Reader {
	cte := strings.ToLower(strings.TrimSpace(headers.Get("Content-Transfer-Encoding").String()))
	switch cte {
	case "base64":
		headers.Del("Content-Transfer-Encoding")
		return base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		headers.Del("Content-Transfer-Encoding")
		return quotedprintable.NewReader(body)
	default:
		// 7bit, 8bit, binary -> no wrapper
		return body
	}
}

// headersOf copies h into one shared buffer and parses it, so all names and
// values of the part view the same storage.
func headersOf(h textproto.MIMEHeader) *mboxheader.Headers {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var raw bytes.Buffer
	for _, name := range names {
		for _, value := range h[name] {
			raw.WriteString(name)
			raw.WriteString(": ")
			raw.WriteString(value)
			raw.WriteByte('\n')
		}
	}
	return mboxheader.Parse(label.NewBuffer(raw.Bytes()))
}

// Walk calls fn for every leaf part of the entity described by headers and
// body, descending into nested multipart parts. An entity that is not
// multipart is itself the only leaf. Each part is closed after fn returns;
// fn must Retain the stream to keep it.
func Walk(headers *mboxheader.Headers, body io.Reader, cfg Config, fn func(*Part) error) error {
	ctype, params, err := mime.ParseMediaType(headers.Get("Content-Type").String())
	if err != nil || !strings.HasPrefix(ctype, "multipart/") {
		p, stream, err := newPart(headers, body, cfg)
		if err != nil {
			return err
		}
		if stream != nil {
			defer stream.Release()
		}
		defer p.Close()
		return fn(p)
	}

	boundary := params["boundary"]
	if boundary == "" {
		return ErrNoBoundary
	}
	return walkReader(NewReader(body, boundary, cfg), cfg, fn)
}

func walkReader(r *Reader, cfg Config, fn func(*Part) error) error {
	defer r.Close()
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading multipart body: %w", err)
		}
		if err := walkPart(p, cfg, fn); err != nil {
			return err
		}
	}
}

func walkPart(p *Part, cfg Config, fn func(*Part) error) error {
	defer p.Close()
	ctype, params := p.MediaType()
	if !strings.HasPrefix(ctype, "multipart/") {
		return fn(p)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return ErrNoBoundary
	}
	return walkReader(NewReader(p.InputStream(), boundary, cfg), cfg, fn)
}
