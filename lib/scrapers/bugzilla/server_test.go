package bugzilla

import (
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeAttachment struct {
	id       int
	filename string
	data     []byte
	// whether show_bug.cgi embeds the payload or leaves only the reference
	inline   bool
	encoding string
}

type fakeBug struct {
	id          int
	summary     string
	status      string
	resolution  string
	attachments []fakeAttachment
}

// fakeBugzilla serves just enough of the bugzilla CGI surface for the
// scraper: csv buglist with a server-side page cap, bulk xml show_bug, raw
// attachment download, and a front page with a logout link for valid
// sessions.
type fakeBugzilla struct {
	bugs    []fakeBug
	pageCap int

	listRequests   int
	fetchRequests  int
	attachRequests int
}

func (f *fakeBugzilla) start(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.cgi", f.handleIndex)
	mux.HandleFunc("/buglist.cgi", f.handleBuglist)
	mux.HandleFunc("/show_bug.cgi", f.handleShowBug)
	mux.HandleFunc("/attachment.cgi", f.handleAttachment)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func (f *fakeBugzilla) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie("Bugzilla_login"); err != nil {
		fmt.Fprint(w, `<html><body><a href="index.cgi?GoAheadAndLogIn=1">Log In</a></body></html>`)
		return
	}
	fmt.Fprint(w, `<html><body><a href="index.cgi?logout=1&amp;token=logout.cgi">Log out</a></body></html>`)
}

func (f *fakeBugzilla) handleBuglist(w http.ResponseWriter, r *http.Request) {
	f.listRequests++

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	offset = min(offset, len(f.bugs))
	end := min(offset+f.pageCap, len(f.bugs))

	writer := csv.NewWriter(w)
	writer.Write([]string{"bug_id", "short_desc"})
	for _, bug := range f.bugs[offset:end] {
		writer.Write([]string{strconv.Itoa(bug.id), bug.summary})
	}
	writer.Flush()
}

func (f *fakeBugzilla) handleShowBug(w http.ResponseWriter, r *http.Request) {
	f.fetchRequests++

	r.ParseForm()
	var out strings.Builder
	out.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<bugzilla version=\"5.0\">\n")
	for _, idText := range r.PostForm["id"] {
		id, _ := strconv.Atoi(idText)
		for _, bug := range f.bugs {
			if bug.id == id {
				writeBugXml(&out, bug)
			}
		}
	}
	out.WriteString("</bugzilla>\n")
	fmt.Fprint(w, out.String())
}

func writeBugXml(out *strings.Builder, bug fakeBug) {
	fmt.Fprintf(out, "<bug>\n<bug_id>%d</bug_id>\n", bug.id)
	fmt.Fprintf(out, "<short_desc>%s</short_desc>\n", bug.summary)
	fmt.Fprintf(out, "<bug_status>%s</bug_status>\n", bug.status)
	fmt.Fprintf(out, "<resolution>%s</resolution>\n", bug.resolution)
	out.WriteString("<product>tools</product>\n<component>core</component>\n")
	out.WriteString("<reporter>alice@example.org</reporter>\n")
	out.WriteString("<assigned_to>bob@example.org</assigned_to>\n")
	out.WriteString("<creation_ts>2024-01-02 03:04:05 +0000</creation_ts>\n")
	fmt.Fprintf(out, "<long_desc><who>alice@example.org</who><bug_when>2024-01-02 03:04:05 +0000</bug_when><thetext>report for bug %d</thetext></long_desc>\n", bug.id)
	for _, att := range bug.attachments {
		fmt.Fprintf(out, "<attachment>\n<attachid>%d</attachid>\n<filename>%s</filename>\n<desc>test attachment</desc>\n<date>2024-01-03 00:00:00 +0000</date>\n", att.id, att.filename)
		if att.inline {
			encoding := att.encoding
			if encoding == "" {
				encoding = "base64"
			}
			fmt.Fprintf(
				out, "<data encoding=%q>%s</data>\n",
				encoding, base64.StdEncoding.EncodeToString(att.data),
			)
		}
		out.WriteString("</attachment>\n")
	}
	out.WriteString("</bug>\n")
}

func (f *fakeBugzilla) handleAttachment(w http.ResponseWriter, r *http.Request) {
	f.attachRequests++

	id, _ := strconv.Atoi(r.URL.Query().Get("id"))
	for _, bug := range f.bugs {
		for _, att := range bug.attachments {
			if att.id == id {
				w.Write(att.data)
				return
			}
		}
	}
	http.NotFound(w, r)
}

func makeBugs(n int) []fakeBug {
	bugs := make([]fakeBug, n)
	for i := range bugs {
		bugs[i] = fakeBug{
			id:      i + 1,
			summary: fmt.Sprintf("bug number %d", i+1),
			status:  "CONFIRMED",
		}
	}
	return bugs
}

func newTestClient(t *testing.T, baseUrl string) *Client {
	client, err := NewClient(ClientOptions{
		BaseUrl: baseUrl,
		Cookies: map[string]string{
			"Bugzilla_login":       "42",
			"Bugzilla_logincookie": "secret",
		},
	})
	require.NoError(t, err)
	return client
}
