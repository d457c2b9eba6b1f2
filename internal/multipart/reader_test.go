package multipart

import (
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emurenMRz/mboxparts/internal/label"
	"github.com/emurenMRz/mboxparts/internal/mboxheader"
)

const formBody = "--XYZ\r\n" +
	"Content-Disposition: form-data; name=\"text\"\r\n" +
	"\r\n" +
	"hello\r\n" +
	"--XYZ\r\n" +
	"Content-Disposition: form-data; name=\"file\"; filename=\"big.bin\"\r\n" +
	"Content-Type: application/octet-stream\r\n" +
	"\r\n" +
	"0123456789abcdef\r\n" +
	"--XYZ--\r\n"

func TestReaderBuffersSmallParts(t *testing.T) {
	r := NewReader(strings.NewReader(formBody), "XYZ", Config{MaxInMemory: 8})
	defer r.Close()

	p, err := r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "text", p.Name().String())
	assert.True(t, p.Filename().IsAbsent())
	assert.Equal(t, int64(5), p.KnownSize())
	assert.Equal(t, "hello", p.InMemoryData().String())
	data, err := io.ReadAll(p.InputStream())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	require.NoError(t, p.Close())
}

func TestReaderStreamsLargeParts(t *testing.T) {
	r := NewReader(strings.NewReader(formBody), "XYZ", Config{MaxInMemory: 8})
	defer r.Close()

	_, err := r.NextPart()
	require.NoError(t, err)

	p, err := r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "big.bin", p.Filename().String())
	assert.Equal(t, UnknownSize, p.KnownSize())
	assert.True(t, p.InMemoryData().IsAbsent())
	assert.Equal(t, 2, p.InputStream().Refs())

	data, err := io.ReadAll(p.InputStream())
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef", string(data))

	stream := p.InputStream()
	require.NoError(t, p.Close())
	assert.Equal(t, 1, stream.Refs())

	_, err = r.NextPart()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 0, stream.Refs())
}

func TestReaderDecodesTransferEncoding(t *testing.T) {
	body := "--b\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"aGVsbG8g\r\nd29ybGQ=\r\n" +
		"--b\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"caf=C3=A9\r\n" +
		"--b--\r\n"
	r := NewReader(strings.NewReader(body), "b", Config{})

	p, err := r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "hello world", p.InMemoryData().String())
	assert.True(t, p.Header("Content-Transfer-Encoding").IsAbsent())

	p, err = r.NextPart()
	require.NoError(t, err)
	text, err := p.Text()
	require.NoError(t, err)
	assert.Equal(t, "café", text)
}

func TestReaderHeadersShareOneBuffer(t *testing.T) {
	r := NewReader(strings.NewReader(formBody), "XYZ", Config{})

	p, err := r.NextPart()
	require.NoError(t, err)
	p2, err := r.NextPart()
	require.NoError(t, err)

	disposition := p2.Header("content-disposition")
	contentType := p2.Header("CONTENT-TYPE")
	assert.Same(t, disposition.Buffer(), contentType.Buffer())
	assert.NotSame(t, disposition.Buffer(), p.Header("content-disposition").Buffer())
}

func mailHeaders(raw string) *mboxheader.Headers {
	return mboxheader.Parse(label.NewBuffer([]byte(raw)))
}

func TestWalkNested(t *testing.T) {
	headers := mailHeaders("Content-Type: multipart/mixed; boundary=outer\n")
	body := "--outer\r\n" +
		"Content-Type: multipart/alternative; boundary=inner\r\n" +
		"\r\n" +
		"--inner\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"plain\r\n" +
		"--inner\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>html</p>\r\n" +
		"--inner--\r\n" +
		"\r\n" +
		"--outer\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"doc.pdf\"\r\n" +
		"\r\n" +
		"%PDF-1.7\r\n" +
		"--outer--\r\n"

	var visited []string
	err := Walk(headers, strings.NewReader(body), Config{}, func(p *Part) error {
		visited = append(visited, p.ContentType()+"|"+p.Filename().String()+"|"+p.InMemoryData().String())
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"text/plain||plain",
		"text/html||<p>html</p>",
		"application/pdf|doc.pdf|%PDF-1.7",
	}, visited)
}

func TestWalkSinglePart(t *testing.T) {
	headers := mailHeaders("Content-Type: text/plain\nContent-Transfer-Encoding: base64\n")

	var got []string
	err := Walk(headers, strings.NewReader("aGk="), Config{}, func(p *Part) error {
		got = append(got, p.InMemoryData().String())
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"hi"}, got)
}

func TestWalkMissingBoundary(t *testing.T) {
	headers := mailHeaders("Content-Type: multipart/mixed\n")

	err := Walk(headers, strings.NewReader(""), Config{}, func(*Part) error { return nil })

	assert.ErrorIs(t, err, ErrNoBoundary)
}

func TestWalkRetainedStreamOutlivesPart(t *testing.T) {
	headers := mailHeaders("Content-Type: multipart/mixed; boundary=b\n")
	body := "--b\r\n\r\nkept\r\n--b--\r\n"

	var kept io.Reader
	var release func() error
	err := Walk(headers, strings.NewReader(body), Config{}, func(p *Part) error {
		s := p.InputStream().Retain()
		kept, release = s, s.Release
		return nil
	})
	require.NoError(t, err)

	data, err := io.ReadAll(kept)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
	require.NoError(t, release())
}

func TestWalkHugeInMemoryLimit(t *testing.T) {
	headers := mailHeaders("Content-Type: text/plain\n")
	cfg := Config{MaxInMemory: math.MaxInt64}

	var data string
	var size int64
	err := Walk(headers, strings.NewReader("hello world"), cfg, func(p *Part) error {
		data, size = p.InMemoryData().String(), p.KnownSize()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "hello world", data)
	assert.Equal(t, int64(11), size)
	assert.Equal(t, int64(math.MaxInt32-1), cfg.maxInMemory())
}
