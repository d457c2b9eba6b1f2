package server

import (
	"io"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/emurenMRz/mboxparts/internal/mboxheader"
	"github.com/emurenMRz/mboxparts/internal/multipart"
)

// parseMessageBody walks the leaf parts of a message. The first text/plain or
// text/html part that is not a file becomes the body; every leaf is listed.
func parseMessageBody(headers *mboxheader.Headers, body io.Reader, cfg multipart.Config) (EmailContent, error) {
	content := EmailContent{Parts: []PartInfo{}}
	index := 0

	err := multipart.Walk(headers, body, cfg, func(p *multipart.Part) error {
		ctype, _ := p.MediaType()
		content.Parts = append(content.Parts, PartInfo{
			Index:       index,
			Name:        p.Name().String(),
			Filename:    p.Filename().String(),
			ContentType: ctype,
			Size:        p.KnownSize(),
		})
		index++

		if content.Body != "" || !p.Filename().IsAbsent() {
			return nil
		}
		if ctype != "text/plain" && ctype != "text/html" {
			return nil
		}
		if p.InMemoryData().IsAbsent() {
			data, err := io.ReadAll(p.InputStream())
			if err != nil {
				return err
			}
			content.Body, content.BodyType = string(data), ctype
			return nil
		}
		text, err := p.Text()
		if err != nil {
			log.Printf("Failed to decode %s body: %v", ctype, err)
		}
		content.Body, content.BodyType = text, ctype
		return nil
	})
	return content, err
}

// parseDate tries to parse common email Date header formats and returns a time.Time.
// If parsing fails, it returns zero time.
func parseDate(dateStr string) time.Time {
	if dateStr == "" {
		return time.Time{}
	}
	if t, err := mail.ParseDate(dateStr); err == nil {
		return t
	}
	// common fallbacks
	layouts := []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		time.RFC850,
		time.RFC3339,
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, dateStr); err == nil {
			return t
		}
	}
	return time.Time{}
}

func decodeAddressList(header string) string {
	if header == "" {
		return ""
	}
	addrs, err := mail.ParseAddressList(header)
	if err != nil {
		// Fallback: try to decode the whole header as an encoded-word
		return multipart.DecodeHeader(header)
	}
	var parts []string
	for _, a := range addrs {
		if a.Name != "" {
			parts = append(parts, multipart.DecodeHeader(a.Name)+" <"+a.Address+">")
		} else {
			parts = append(parts, a.Address)
		}
	}
	return strings.Join(parts, ", ")
}
