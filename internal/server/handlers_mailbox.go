package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/emersion/go-imap/utf7"
	"github.com/emersion/go-mbox"

	"github.com/emurenMRz/mboxparts/internal/mboxheader"
	"github.com/emurenMRz/mboxparts/internal/multipart"
)

var errPartFound = errors.New("part found")

func (s *server) updateStatusHandler(w http.ResponseWriter, r *http.Request, mailboxName string, emailIdStr string, status string) {
	mboxPath, err := s.mboxPath(mailboxName)
	if err != nil {
		http.Error(w, "Invalid mailbox name", http.StatusBadRequest)
		return
	}

	emailId, err := strconv.Atoi(emailIdStr)
	if err != nil {
		http.Error(w, "Invalid email ID", http.StatusBadRequest)
		return
	}

	messages, err := ReadMessages(mboxPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if emailId < 0 || emailId >= len(messages) {
		http.Error(w, "Invalid email ID", http.StatusBadRequest)
		return
	}

	envelopeLine, rest := SplitAtFirstNewline(messages[emailId])
	updated, changed := updateStatusHeader(rest, status)
	if !changed {
		w.WriteHeader(http.StatusOK)
		return
	}
	messages[emailId] = envelopeLine + "\n" + updated

	tempFile, err := os.CreateTemp(s.cfg.Path, "mboxview-update-*.mbox")
	if err != nil {
		log.Printf("Error creating temp file: %v", err)
		http.Error(w, "Error updating mbox", http.StatusInternalServerError)
		return
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	for _, msgStr := range messages {
		if _, err := tempFile.WriteString(msgStr); err != nil {
			log.Printf("Error writing message to temp file: %v", err)
			http.Error(w, "Error updating mbox", http.StatusInternalServerError)
			return
		}
	}

	if err := tempFile.Close(); err != nil {
		log.Printf("Error closing temp file: %v", err)
		http.Error(w, "Error updating mbox", http.StatusInternalServerError)
		return
	}

	// Atomically replace the original file
	if err := os.Rename(filepath.Clean(tempFile.Name()), mboxPath); err != nil {
		log.Printf("Error replacing original file: %v", err)
		http.Error(w, "Error updating mbox", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *server) markEmailReadHandler(w http.ResponseWriter, r *http.Request, mailboxName string, emailIdStr string) {
	s.updateStatusHandler(w, r, mailboxName, emailIdStr, "RO")
}

func (s *server) mailboxesHandler(w http.ResponseWriter, _ *http.Request) {
	files, err := os.ReadDir(s.cfg.Path)
	if err != nil {
		http.Error(w, "Failed to read directory", http.StatusInternalServerError)
		return
	}

	mailboxes := []string{}
	for _, file := range files {
		if !file.IsDir() {
			// Files on disk are IMAP-UTF7 encoded; decode to UTF-8 for API response
			decodedName, err := utf7.Encoding.NewDecoder().String(file.Name())
			if err != nil {
				log.Printf("Failed to decode mailbox filename %s: %v", file.Name(), err)
				continue
			}
			mailboxes = append(mailboxes, decodedName)
		}
	}

	writeJSON(w, mailboxes)
}

func (s *server) listEmailsHandler(w http.ResponseWriter, r *http.Request, mailboxName string) {
	f, ok := s.openMailbox(w, r, mailboxName)
	if !ok {
		return
	}
	defer f.Close()

	emails := []Email{}
	reader := mbox.NewReader(f)
	for i := 0; ; i++ {
		msg, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Error reading message in %s: %v", mailboxName, err)
			continue
		}

		headers, _, err := mboxheader.ReadHeader(msg)
		if err != nil {
			log.Printf("Failed to parse message headers in %s: %v", mailboxName, err)
			continue
		}

		status := headers.Get("Status").String()
		if status == "D" {
			continue
		}
		if status == "" {
			// no Status field means a new message
			status = "N"
		}

		dateStr := headers.Get("Date").String()
		emails = append(emails, Email{
			ID:        i,
			From:      decodeAddressList(headers.Get("From").String()),
			Date:      dateStr,
			Subject:   multipart.DecodeHeader(headers.Get("Subject").String()),
			Status:    status,
			Timestamp: parseDate(dateStr),
		})
	}

	// sort by Timestamp descending (newest first). Zero timestamps go last.
	sort.SliceStable(emails, func(a, b int) bool {
		ta := emails[a].Timestamp
		tb := emails[b].Timestamp
		if ta.Equal(tb) {
			return emails[a].ID < emails[b].ID
		}
		if ta.IsZero() {
			return false
		}
		if tb.IsZero() {
			return true
		}
		return ta.After(tb)
	})

	writeJSON(w, emails)
}

func (s *server) emailContentHandler(w http.ResponseWriter, r *http.Request, mailboxName string, emailIdStr string) {
	emailId, err := strconv.Atoi(emailIdStr)
	if err != nil {
		http.Error(w, "Invalid email ID", http.StatusBadRequest)
		return
	}

	f, ok := s.openMailbox(w, r, mailboxName)
	if !ok {
		return
	}
	defer f.Close()

	msg, ok := s.message(w, r, f, emailId)
	if !ok {
		return
	}
	headers, body, err := mboxheader.ReadHeader(msg)
	if err != nil {
		log.Printf("Failed to parse message %d in %s: %v", emailId, mailboxName, err)
		http.Error(w, "Error reading message", http.StatusInternalServerError)
		return
	}

	content, err := parseMessageBody(headers, body, s.cfg.Multipart)
	if err != nil {
		log.Printf("Error reading body of message %d in %s: %v", emailId, mailboxName, err)
	}

	writeJSON(w, content)
}

func (s *server) partHandler(w http.ResponseWriter, r *http.Request, mailboxName, emailIdStr, partIndexStr string) {
	emailId, err := strconv.Atoi(emailIdStr)
	if err != nil {
		http.Error(w, "Invalid email ID", http.StatusBadRequest)
		return
	}
	partIndex, err := strconv.Atoi(partIndexStr)
	if err != nil || partIndex < 0 {
		http.Error(w, "Invalid part index", http.StatusBadRequest)
		return
	}

	f, ok := s.openMailbox(w, r, mailboxName)
	if !ok {
		return
	}
	defer f.Close()

	msg, ok := s.message(w, r, f, emailId)
	if !ok {
		return
	}
	headers, body, err := mboxheader.ReadHeader(msg)
	if err != nil {
		http.Error(w, "Error reading message", http.StatusInternalServerError)
		return
	}

	index := 0
	err = multipart.Walk(headers, body, s.cfg.Multipart, func(p *multipart.Part) error {
		if index != partIndex {
			index++
			return nil
		}
		w.Header().Set("Content-Type", p.ContentType())
		if filename := p.Filename(); !filename.IsAbsent() {
			w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename.String()}))
		}
		if size := p.KnownSize(); size != multipart.UnknownSize {
			w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		}
		if _, err := io.Copy(w, p.InputStream()); err != nil {
			log.Printf("Error sending part %d of message %d in %s: %v", partIndex, emailId, mailboxName, err)
		}
		return errPartFound
	})
	if errors.Is(err, errPartFound) {
		return
	}
	if err != nil {
		log.Printf("Error reading body of message %d in %s: %v", emailId, mailboxName, err)
	}
	http.NotFound(w, r)
}

func (s *server) message(w http.ResponseWriter, r *http.Request, f io.Reader, emailId int) (io.Reader, bool) {
	msg, err := findMessage(f, emailId)
	if errors.Is(err, errMessageNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		log.Printf("Error reading mbox: %v", err)
		http.Error(w, "Error reading mbox", http.StatusInternalServerError)
		return nil, false
	}
	return msg, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
