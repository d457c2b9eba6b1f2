// Package extract lists and saves the parts of the messages in an mbox file.
package extract

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/emersion/go-mbox"
	"golang.org/x/sync/errgroup"

	"github.com/emurenMRz/mboxparts/internal/iostream"
	"github.com/emurenMRz/mboxparts/internal/mboxheader"
	"github.com/emurenMRz/mboxparts/internal/multipart"
)

type Options struct {
	OutDir    string
	Jobs      int // concurrent writers of buffered parts; 0 or less means 1
	Multipart multipart.Config
}

// Result describes one saved file part.
type Result struct {
	MsgIndex  int
	PartIndex int
	Filename  string
	Path      string
	Size      int64
	Streamed  bool // written while the mailbox was read, without a buffered copy
}

// Walk calls fn for every leaf part of every message read from r. Messages
// that cannot be parsed are logged and skipped.
func Walk(r io.Reader, cfg multipart.Config, fn func(msgIndex, partIndex int, p *multipart.Part) error) error {
	reader := mbox.NewReader(r)
	for i := 0; ; i++ {
		msg, err := reader.NextMessage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading message %d: %w", i, err)
		}
		headers, body, err := mboxheader.ReadHeader(msg)
		if err != nil {
			log.Printf("Failed to parse headers of message %d: %v", i, err)
			continue
		}

		partIndex := 0
		err = multipart.Walk(headers, body, cfg, func(p *multipart.Part) error {
			defer func() { partIndex++ }()
			return fn(i, partIndex, p)
		})
		if err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
}

// Mailbox saves every part with a filename to opts.OutDir. Buffered parts are
// written concurrently from their own reference on the part stream; streamed
// parts are written before the next part is read.
func Mailbox(ctx context.Context, r io.Reader, opts Options) ([]Result, error) {
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Jobs, 1))

	var (
		mu      sync.Mutex
		results []Result
	)
	add := func(res Result) {
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
	}

	walkErr := Walk(r, opts.Multipart, func(msgIndex, partIndex int, p *multipart.Part) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		filename := p.Filename()
		if filename.IsAbsent() || p.InputStream() == nil {
			return nil
		}
		res := Result{
			MsgIndex:  msgIndex,
			PartIndex: partIndex,
			Filename:  filename.String(),
			Path:      filepath.Join(opts.OutDir, fileName(msgIndex, partIndex, filename.String())),
		}

		if p.InMemoryData().IsAbsent() {
			n, err := writeFile(res.Path, p.InputStream())
			if err != nil {
				return err
			}
			res.Size, res.Streamed = n, true
			add(res)
			return nil
		}

		stream := p.InputStream().Retain()
		g.Go(func() error {
			defer stream.Release()
			n, err := writeFile(res.Path, stream)
			if err != nil {
				return err
			}
			res.Size = n
			add(res)
			return nil
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].MsgIndex != results[b].MsgIndex {
			return results[a].MsgIndex < results[b].MsgIndex
		}
		return results[a].PartIndex < results[b].PartIndex
	})
	return results, nil
}

func fileName(msgIndex, partIndex int, filename string) string {
	base := filepath.Base(filepath.Clean("/" + filename))
	if base == "/" || base == "." {
		base = "part"
	}
	return fmt.Sprintf("%04d-%02d-%s", msgIndex, partIndex, base)
}

func writeFile(path string, stream *iostream.Shared) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, stream)
	if err != nil {
		f.Close()
		return n, fmt.Errorf("writing %s: %w", path, err)
	}
	return n, f.Close()
}
