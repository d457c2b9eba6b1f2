package server

import (
	"net/http"
)

type server struct {
	cfg Config
}

// NewHandler returns the HTTP handler serving the mailbox API under /api/mailboxes/.
func NewHandler(cfg Config) http.Handler {
	s := &server{cfg: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mailboxes/", s.handleMailboxRoutes)
	return mux
}

// ListenAndServe serves the mailbox API on addr.
func ListenAndServe(addr string, cfg Config) error {
	return http.ListenAndServe(addr, NewHandler(cfg))
}
