package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMbox = `From alice@example.com Mon Jan  1 00:00:00 2024
From: Alice <alice@example.com>
Date: Mon, 01 Jan 2024 10:00:00 +0000
Subject: =?UTF-8?B?44GT44KT44Gr44Gh44Gv?=
Content-Type: multipart/mixed; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

Hello there
--b1
Content-Type: text/plain
Content-Disposition: attachment; filename="notes.txt"
Content-Transfer-Encoding: base64

bm90ZXM=
--b1--

From bob@example.com Tue Jan  2 00:00:00 2024
From: bob@example.com
Date: Tue, 02 Jan 2024 10:00:00 +0000
Subject: plain
Status: RO

Just text.

`

func newTestServer(t *testing.T, editMode bool) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "INBOX"), []byte(testMbox), 0o600))

	ts := httptest.NewServer(NewHandler(Config{Path: dir, EditMode: editMode}))
	t.Cleanup(ts.Close)
	return ts, dir
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestMailboxes(t *testing.T) {
	ts, _ := newTestServer(t, false)

	var mailboxes []string
	getJSON(t, ts.URL+"/api/mailboxes/", &mailboxes)

	assert.Equal(t, []string{"INBOX"}, mailboxes)
}

func TestListEmails(t *testing.T) {
	ts, _ := newTestServer(t, false)

	var emails []Email
	getJSON(t, ts.URL+"/api/mailboxes/INBOX/emails", &emails)

	require.Len(t, emails, 2)
	assert.Equal(t, 1, emails[0].ID)
	assert.Equal(t, "plain", emails[0].Subject)
	assert.Equal(t, "RO", emails[0].Status)
	assert.Equal(t, 0, emails[1].ID)
	assert.Equal(t, "こんにちは", emails[1].Subject)
	assert.Equal(t, "Alice <alice@example.com>", emails[1].From)
	assert.Equal(t, "N", emails[1].Status)
}

func TestEmailContent(t *testing.T) {
	ts, _ := newTestServer(t, false)

	var content EmailContent
	getJSON(t, ts.URL+"/api/mailboxes/INBOX/emails/0", &content)

	assert.Equal(t, "Hello there", content.Body)
	assert.Equal(t, "text/plain", content.BodyType)
	require.Len(t, content.Parts, 2)
	assert.Equal(t, PartInfo{Index: 0, ContentType: "text/plain", Size: 11}, content.Parts[0])
	assert.Equal(t, PartInfo{Index: 1, Filename: "notes.txt", ContentType: "text/plain", Size: 5}, content.Parts[1])
}

func TestEmailContentSinglePart(t *testing.T) {
	ts, _ := newTestServer(t, false)

	var content EmailContent
	getJSON(t, ts.URL+"/api/mailboxes/INBOX/emails/1", &content)

	assert.Contains(t, content.Body, "Just text.")
	require.Len(t, content.Parts, 1)
}

func TestPartDownload(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp, err := http.Get(ts.URL + "/api/mailboxes/INBOX/emails/0/parts/1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename=notes.txt", resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "5", resp.Header.Get("Content-Length"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "notes", string(data))
}

func TestNotFound(t *testing.T) {
	ts, _ := newTestServer(t, false)

	for _, path := range []string{
		"/api/mailboxes/Missing/emails",
		"/api/mailboxes/INBOX/emails/9",
		"/api/mailboxes/INBOX/emails/0/parts/7",
		"/api/mailboxes/INBOX/other",
	} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	resp, err := http.Get(ts.URL + "/api/mailboxes/INBOX/emails/x/parts/0")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMarkRead(t *testing.T) {
	ts, _ := newTestServer(t, true)

	resp, err := http.Post(ts.URL+"/api/mailboxes/INBOX/emails/0/read", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var emails []Email
	getJSON(t, ts.URL+"/api/mailboxes/INBOX/emails", &emails)
	require.Len(t, emails, 2)
	assert.Equal(t, "RO", emails[1].Status)

	var content EmailContent
	getJSON(t, ts.URL+"/api/mailboxes/INBOX/emails/0", &content)
	assert.Equal(t, "Hello there", content.Body)
}

func TestMarkReadRequiresEditMode(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp, err := http.Post(ts.URL+"/api/mailboxes/INBOX/emails/0/read", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateStatusHeader(t *testing.T) {
	message := "From: a@example.com\nStatus: O\nSubject: hi\n\nbody\n"

	updated, changed := updateStatusHeader(message, "RO")
	assert.True(t, changed)
	assert.Equal(t, "From: a@example.com\nStatus: RO\nSubject: hi\n\nbody\n", updated)

	_, changed = updateStatusHeader(updated, "RO")
	assert.False(t, changed)
}

func TestUpdateStatusHeaderKeepsRawHeader(t *testing.T) {
	message := "Received: from a by b\r\n" +
		"Received: from c by d\r\n" +
		"Subject: long\r\n folded\r\n" +
		"Status: O\r\n" +
		"\r\nbody\r\n"

	updated, changed := updateStatusHeader(message, "RO")

	assert.True(t, changed)
	assert.Equal(t, "Received: from a by b\r\n"+
		"Received: from c by d\r\n"+
		"Subject: long\r\n folded\r\n"+
		"Status: RO\r\n"+
		"\r\nbody\r\n", updated)
}

func TestUpdateStatusHeaderFoldedStatus(t *testing.T) {
	message := "Status: O\n \tR\nSubject: hi\n\nbody\n"

	updated, changed := updateStatusHeader(message, "RO")

	assert.True(t, changed)
	assert.Equal(t, "Status: RO\nSubject: hi\n\nbody\n", updated)
}

func TestUpdateStatusHeaderAppends(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"lf", "From: a@example.com\n\nbody\n", "From: a@example.com\nStatus: RO\n\nbody\n"},
		{"crlf", "From: a@example.com\r\n\r\nbody\r\n", "From: a@example.com\r\nStatus: RO\r\n\r\nbody\r\n"},
		{"no body", "From: a@example.com", "From: a@example.com\nStatus: RO\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, changed := updateStatusHeader(tt.message, "RO")

			assert.True(t, changed)
			assert.Equal(t, tt.want, updated)
		})
	}
}
