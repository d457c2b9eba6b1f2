package main

import (
	"flag"
	"log"

	"github.com/emurenMRz/mboxparts/internal/multipart"
	"github.com/emurenMRz/mboxparts/internal/server"
)

func main() {
	var cfg server.Config
	var addr string
	flag.StringVar(&cfg.Path, "path", ".", "path to mbox files")
	flag.StringVar(&addr, "addr", ":8080", "listen address")
	flag.BoolVar(&cfg.EditMode, "edit", false, "allow marking messages as read")
	flag.Int64Var(&cfg.Multipart.MaxInMemory, "max-memory", multipart.DefaultMaxInMemory, "largest part body kept in memory, in bytes")
	flag.Parse()

	log.Printf("Listening on %s...", addr)
	if err := server.ListenAndServe(addr, cfg); err != nil {
		log.Fatal(err)
	}
}
