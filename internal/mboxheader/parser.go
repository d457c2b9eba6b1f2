package mboxheader

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/emurenMRz/mboxparts/internal/label"
)

// Parse reads header fields from buf up to the first blank line. Names and
// values are views into buf; only folded values are copied, joined with a
// single space. Lines that are neither fields nor continuations are ignored.
// A repeated field name replaces the earlier value.
func Parse(buf *label.Buffer) *Headers {
	h := NewHeaders()
	p := buf.Bytes()

	var (
		open      bool // a field is pending
		name      label.Label
		valueFrom int
		valueEdge int
		folded    []string // set once the pending field has continuation lines
	)
	flush := func() {
		if !open {
			return
		}
		if folded != nil {
			h.Put(name, label.New(strings.Join(folded, " ")))
		} else {
			h.Put(name, buf.Label(valueFrom, valueEdge))
		}
		open, folded = false, nil
	}

	for from := 0; from < len(p); {
		edge, next := len(p), len(p)
		if i := bytes.IndexByte(p[from:], '\n'); i >= 0 {
			edge, next = from+i, from+i+1
		}
		if edge > from && p[edge-1] == '\r' {
			edge--
		}

		switch line := p[from:edge]; {
		case len(line) == 0:
			flush()
			return h
		case line[0] == ' ' || line[0] == '\t':
			if open {
				if folded == nil {
					folded = make([]string, 0, 2)
					if valueFrom < valueEdge {
						folded = append(folded, string(p[valueFrom:valueEdge]))
					}
				}
				f, e := trimSpan(p, from, edge)
				if f < e {
					folded = append(folded, string(p[f:e]))
				}
			}
		default:
			flush()
			if i := bytes.IndexByte(line, ':'); i > 0 {
				nf, ne := trimSpan(p, from, from+i)
				if nf == ne {
					break
				}
				name = buf.Label(nf, ne)
				valueFrom, valueEdge = trimSpan(p, from+i+1, edge)
				open = true
			}
		}
		from = next
	}
	flush()
	return h
}

// SplitHeader splits a raw entity at the first blank line. The header keeps
// its last line break. Without a blank line, p is all header.
func SplitHeader(p []byte) (header, body []byte) {
	if len(p) > 0 && (p[0] == '\n' || bytes.HasPrefix(p, crlf)) {
		i := bytes.IndexByte(p, '\n')
		return p[:0], p[i+1:]
	}
	for i := 0; i < len(p); i++ {
		if p[i] != '\n' {
			continue
		}
		j := i + 1
		if j < len(p) && p[j] == '\r' {
			j++
		}
		if j < len(p) && p[j] == '\n' {
			return p[:i+1], p[j+1:]
		}
	}
	return p, nil
}

var crlf = []byte("\r\n")

func trimSpan(p []byte, from, edge int) (int, int) {
	for from < edge && (p[from] == ' ' || p[from] == '\t') {
		from++
	}
	for edge > from && (p[edge-1] == ' ' || p[edge-1] == '\t') {
		edge--
	}
	return from, edge
}

// ReadHeader reads and parses the header block of an entity from r. The
// returned reader continues right after the blank line.
func ReadHeader(r io.Reader) (*Headers, io.Reader, error) {
	br := bufio.NewReader(r)
	var raw []byte
	for {
		line, err := br.ReadBytes('\n')
		raw = append(raw, line...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(bytes.TrimRight(line, "\r\n")) == 0 {
			break
		}
	}
	return Parse(label.NewBuffer(raw)), br, nil
}
