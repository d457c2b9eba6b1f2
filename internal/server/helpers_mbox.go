package server

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-imap/utf7"
	"github.com/emersion/go-mbox"

	"github.com/emurenMRz/mboxparts/internal/label"
	"github.com/emurenMRz/mboxparts/internal/mboxheader"
)

var errMessageNotFound = errors.New("message not found")

// mboxPath maps a UTF-8 mailbox name from the API to its IMAP-UTF7 file name on disk.
func (s *server) mboxPath(mailboxName string) (string, error) {
	encoded, err := utf7.Encoding.NewEncoder().String(mailboxName)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.cfg.Path, filepath.Base(encoded)), nil
}

func (s *server) openMailbox(w http.ResponseWriter, r *http.Request, mailboxName string) (*os.File, bool) {
	path, err := s.mboxPath(mailboxName)
	if err != nil {
		http.Error(w, "Invalid mailbox name", http.StatusBadRequest)
		return nil, false
	}
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	return f, true
}

// findMessage positions an mbox reader on message id.
func findMessage(f io.Reader, id int) (io.Reader, error) {
	reader := mbox.NewReader(f)
	for i := 0; ; i++ {
		msg, err := reader.NextMessage()
		if err == io.EOF {
			return nil, errMessageNotFound
		}
		if err != nil {
			return nil, err
		}
		if i == id {
			return msg, nil
		}
	}
}

// ReadMessages reads all messages from an mbox file, envelope lines included.
func ReadMessages(mboxPath string) ([]string, error) {
	f, err := os.Open(mboxPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var messages []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var currentMessage strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "From ") && currentMessage.Len() > 0 {
			messages = append(messages, currentMessage.String())
			currentMessage.Reset()
		}
		currentMessage.WriteString(line)
		currentMessage.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if currentMessage.Len() > 0 {
		messages = append(messages, currentMessage.String())
	}
	return messages, nil
}

func SplitAtFirstNewline(s string) (string, string) {
	if i := strings.Index(s, "\n"); i != -1 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// updateStatusHeader sets the Status field of a raw message without envelope
// line. Only the value of the last Status field is replaced; without one, a
// field is appended to the header. All other bytes are kept as they are.
func updateStatusHeader(message string, newStatus string) (string, bool) {
	header, _ := mboxheader.SplitHeader([]byte(message))
	headers := mboxheader.Parse(label.NewBuffer(header))
	if headers.Get("Status").EqualString(newStatus) {
		return message, false
	}

	eol := "\n"
	if bytes.Contains(header, []byte("\r\n")) {
		eol = "\r\n"
	}

	var sb strings.Builder
	if name, ok := fieldName(headers, "Status"); ok {
		_, nameEdge := name.Span()
		sb.Write(header[:nameEdge])
		sb.WriteString(": " + newStatus)
		sb.Write(header[fieldEnd(header, nameEdge):])
	} else {
		sb.Write(header)
		if len(header) > 0 && header[len(header)-1] != '\n' {
			sb.WriteString(eol)
		}
		sb.WriteString("Status: " + newStatus + eol)
	}
	sb.WriteString(message[len(header):])
	return sb.String(), true
}

// fieldName returns the name label of the named field as stored in h.
func fieldName(h *mboxheader.Headers, name string) (label.Label, bool) {
	for field := range h.All() {
		if field.EqualFoldString(name) {
			return field, true
		}
	}
	return label.Label{}, false
}

// fieldEnd returns the offset of the line break ending the field that
// continues at from, continuation lines included.
func fieldEnd(p []byte, from int) int {
	for {
		i := bytes.IndexByte(p[from:], '\n')
		if i < 0 {
			return len(p)
		}
		next := from + i + 1
		if next < len(p) && (p[next] == ' ' || p[next] == '\t') {
			from = next
			continue
		}
		edge := from + i
		if edge > 0 && p[edge-1] == '\r' {
			edge--
		}
		return edge
	}
}
