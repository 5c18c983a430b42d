package sink

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/vidharvest/harvest/outcome"
	"github.com/hazyhaar/vidharvest/harvest/videoref"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func sampleRun() outcome.RunOutcome {
	return outcome.RunOutcome{
		ID:       "run_test",
		Strategy: "module_paging",
		Status:   outcome.StatusSuccess,
		Links: []videoref.Ref{
			"https://www.youtube.com/watch?v=abc123",
			"https://www.youtube.com/watch?v=def456",
		},
	}
}

func TestRouter_FansOutAndReturnsFirstError(t *testing.T) {
	var got []string
	first := errors.New("first")
	r := NewRouter(quiet,
		NewCallback(func(context.Context, outcome.RunOutcome) error { got = append(got, "a"); return first }),
		NewCallback(func(context.Context, outcome.RunOutcome) error { got = append(got, "b"); return errors.New("second") }),
		NewCallback(func(context.Context, outcome.RunOutcome) error { got = append(got, "c"); return nil }),
	)
	err := r.Send(context.Background(), sampleRun())
	assert.ErrorIs(t, err, first)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 3, r.Len())
	assert.NoError(t, r.Close())
}

func TestStdout(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	require.NoError(t, s.Send(context.Background(), sampleRun()))
	require.NoError(t, s.Send(context.Background(), outcome.RunOutcome{ID: "run_empty"}))

	dec := json.NewDecoder(&buf)
	var env struct {
		Type string             `json:"type"`
		Data outcome.RunOutcome `json:"data"`
	}
	require.NoError(t, dec.Decode(&env))
	assert.Equal(t, "run", env.Type)
	assert.Len(t, env.Data.Links, 2)
	require.NoError(t, dec.Decode(&env))
	assert.Equal(t, "run_empty", env.Data.ID)
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond), WithWebhookLogger(quiet))
	require.NoError(t, w.Send(context.Background(), sampleRun()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhook_Exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL,
		WithWebhookRetries(2),
		WithWebhookBackoff(time.Millisecond),
		WithWebhookTimeout(time.Second),
		WithWebhookLogger(quiet))
	err := w.Send(context.Background(), sampleRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, int32(3), calls.Load())
}

func TestTextFile(t *testing.T) {
	dir := t.TempDir()
	s := NewTextFile(dir)
	require.NoError(t, s.Send(context.Background(), sampleRun()))

	data, err := os.ReadFile(filepath.Join(dir, TextName))
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123\nhttps://www.youtube.com/watch?v=def456", string(data))

	// A failed run with nothing collected still replaces the file.
	require.NoError(t, s.Send(context.Background(), outcome.RunOutcome{Status: outcome.StatusFailed}))
	data, err = os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Empty(t, data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDocxFile(t *testing.T) {
	dir := t.TempDir()
	s := NewDocxFile(dir)
	require.NoError(t, s.Send(context.Background(), sampleRun()))

	paras, styles := readDocx(t, s.Path())
	assert.Equal(t, []string{
		"https://www.youtube.com/watch?v=abc123",
		"https://www.youtube.com/watch?v=def456",
	}, paras)
	assert.Equal(t, []string{"", ""}, styles)
}

func TestWriteDocx_EscapesText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDocx(&buf, "A & B", []string{"<x>"}))
	path := filepath.Join(t.TempDir(), "out.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	paras, styles := readDocx(t, path)
	assert.Equal(t, []string{"A & B", "<x>"}, paras)
	assert.Equal(t, []string{"Heading1", ""}, styles)
}

// readDocx returns the text and style of every paragraph in word/document.xml.
func readDocx(t *testing.T, path string) (paras, styles []string) {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	names := map[string]bool{}
	var doc *zip.File
	for _, f := range r.File {
		names[f.Name] = true
		if f.Name == "word/document.xml" {
			doc = f
		}
	}
	require.NotNil(t, doc)
	assert.True(t, names["[Content_Types].xml"])
	assert.True(t, names["_rels/.rels"])

	rc, err := doc.Open()
	require.NoError(t, err)
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var text bytes.Buffer
	var style string
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				text.Reset()
				style = ""
			case "pStyle":
				for _, a := range el.Attr {
					if a.Name.Local == "val" {
						style = a.Value
					}
				}
			case "t":
				inText = true
			}
		case xml.CharData:
			if inText {
				text.Write(el)
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				paras = append(paras, text.String())
				styles = append(styles, style)
			}
		}
	}
	return paras, styles
}
