package multipart

import (
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

const defaultContentType = "application/octet-stream"

// ContentType returns the Content-Type header of p. Without one, the type is
// detected from the in-memory data, and falls back to application/octet-stream.
func (p *Part) ContentType() string {
	if value := p.headers.Get("Content-Type"); !value.IsEmpty() {
		return value.String()
	}
	if !p.inMemory.IsAbsent() {
		return mimetype.Detect(p.inMemory.Bytes()).String()
	}
	return defaultContentType
}

// MediaType returns the lowercased media type and parameters of p's content type.
func (p *Part) MediaType() (string, map[string]string) {
	ctype, params, err := mime.ParseMediaType(p.ContentType())
	if err != nil {
		return "text/plain", map[string]string{}
	}
	return ctype, params
}

// Text returns the in-memory data decoded from the charset of the content
// type. Unknown charsets are read as UTF-8. A part without in-memory data
// returns an empty string.
func (p *Part) Text() (string, error) {
	if p.inMemory.IsAbsent() {
		return "", nil
	}
	_, params := p.MediaType()
	charset := params["charset"]
	if charset == "" {
		charset = "utf-8"
	}

	encoding, err := ianaindex.IANA.Encoding(charset)
	if err != nil || encoding == nil {
		encoding, _ = ianaindex.IANA.Encoding("utf-8")
	}
	decoded, err := encoding.NewDecoder().Bytes(p.inMemory.Bytes())
	if err != nil {
		return p.inMemory.String(), err
	}
	return string(decoded), nil
}

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// DecodeHeader decodes RFC 2047 encoded-words in s. On failure s is returned as is.
func DecodeHeader(s string) string {
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

func decodeWords(s string) string {
	if !strings.Contains(s, "=?") {
		return s
	}
	return DecodeHeader(s)
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	if charset == "" {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(strings.ToLower(charset))
	if err != nil || enc == nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
