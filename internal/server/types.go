package server

import (
	"time"

	"github.com/emurenMRz/mboxparts/internal/multipart"
)

// Config holds the server settings.
type Config struct {
	Path      string // directory of mbox files
	EditMode  bool   // allow POST routes
	Multipart multipart.Config
}

type Email struct {
	ID      int    `json:"id"`
	From    string `json:"from"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
	Status  string `json:"status"`
	// Timestamp is parsed Date used for sorting. Not exported to JSON.
	Timestamp time.Time `json:"-"`
}

type EmailContent struct {
	Body     string     `json:"body"`
	BodyType string     `json:"bodyType"`
	Parts    []PartInfo `json:"parts"`
}

// PartInfo describes one leaf part of a message. Size is -1 when unknown.
type PartInfo struct {
	Index       int    `json:"index"`
	Name        string `json:"name,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}
