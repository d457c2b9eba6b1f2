package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/emurenMRz/mboxparts/internal/extract"
	"github.com/emurenMRz/mboxparts/internal/multipart"
)

func main() {
	var (
		mode      = flag.String("mode", "list", "Operation mode: list, extract")
		inputPath = flag.String("path", "", "Input mbox file path (required)")
		outDir    = flag.String("out", "parts", "Output directory (for extract mode)")
		jobs      = flag.Int("jobs", 4, "Concurrent file writers (for extract mode)")
		maxMemory = flag.Int64("max-memory", multipart.DefaultMaxInMemory, "Largest part body kept in memory, in bytes")
		quiet     = flag.Bool("quiet", false, "Suppress non-error output (for extract mode)")
	)
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("Error: -path is required")
	}

	f, err := os.Open(*inputPath)
	if err != nil {
		log.Fatal("Error opening mbox file:", err)
	}
	defer f.Close()

	cfg := multipart.Config{MaxInMemory: *maxMemory}
	switch *mode {
	case "list":
		listParts(f, cfg)
	case "extract":
		extractParts(f, extract.Options{OutDir: *outDir, Jobs: *jobs, Multipart: cfg}, *quiet)
	default:
		log.Fatal("Error: Unknown mode. Use list or extract")
	}
}

func listParts(f *os.File, cfg multipart.Config) {
	err := extract.Walk(f, cfg, func(msgIndex, partIndex int, p *multipart.Part) error {
		size := "unknown"
		if p.KnownSize() != multipart.UnknownSize {
			size = fmt.Sprintf("%d", p.KnownSize())
		}
		fmt.Printf("Message %d part %d: %s size=%s", msgIndex, partIndex, p.ContentType(), size)
		if filename := p.Filename(); !filename.IsAbsent() {
			fmt.Printf(" filename=%q", filename.String())
		}
		fmt.Println()
		return nil
	})
	if err != nil {
		log.Fatal("Error reading mbox file:", err)
	}
}

func extractParts(f *os.File, opts extract.Options, quiet bool) {
	results, err := extract.Mailbox(context.Background(), f, opts)
	if err != nil {
		log.Fatal("Error extracting parts:", err)
	}
	if quiet {
		return
	}
	if len(results) == 0 {
		fmt.Println("No file parts found.")
		return
	}
	for _, res := range results {
		fmt.Printf("Message %d part %d: %s -> %s (%d bytes)\n", res.MsgIndex, res.PartIndex, res.Filename, res.Path, res.Size)
	}
}
