package server

import (
	"log"
	"net/http"
	"strings"
)

func (s *server) handleMailboxRoutes(w http.ResponseWriter, r *http.Request) {
	log.Println(r.Method + " " + r.URL.Path)

	// Guard POST methods for edit mode
	if r.Method == http.MethodPost && !s.cfg.EditMode {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/mailboxes/"), "/")
	segmentCount := len(parts)

	if segmentCount == 1 {
		s.mailboxesHandler(w, r)
		return
	}

	if parts[1] == "emails" {
		mboxName := parts[0]
		switch {
		case segmentCount == 2:
			s.listEmailsHandler(w, r, mboxName)
			return
		case segmentCount == 3:
			s.emailContentHandler(w, r, mboxName, parts[2])
			return
		case segmentCount == 4 && r.Method == http.MethodPost && parts[3] == "read":
			s.markEmailReadHandler(w, r, mboxName, parts[2])
			return
		case segmentCount == 5 && parts[3] == "parts":
			s.partHandler(w, r, mboxName, parts[2], parts[4])
			return
		}
	}

	http.NotFound(w, r)
}
