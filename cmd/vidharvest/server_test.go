package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/vidharvest/harvest"
	"github.com/hazyhaar/vidharvest/harvest/surface"
	"github.com/hazyhaar/vidharvest/harvest/surface/surfacetest"
	"github.com/hazyhaar/vidharvest/harvest/videoref"
	"github.com/hazyhaar/vidharvest/horosafe"
)

const riseAddr = "https://rise.articulate.com/share/abcDEF#/"

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type pageSession struct{ p *surfacetest.Page }

func (s pageSession) Surface() surface.Surface { return s.p }
func (s pageSession) Close() error             { return nil }

func risePage() *surfacetest.Page {
	page := surfacetest.NewPage("about:blank", "")
	page.Route(riseAddr, `<a href="https://youtu.be/rise001">v</a>
		<iframe id="yt" src="https://www.youtube.com/embed/rise002"></iframe>`)
	return page
}

type fakeProcessor struct{}

func (fakeProcessor) Process(_ context.Context, ref videoref.Ref) (harvest.ProcessResult, error) {
	return harvest.ProcessResult{VideoID: ref.ID(), Transcript: "words", Summary: "short"}, nil
}

func testServer(t *testing.T, tweak func(*harvest.Config)) (*server, *harvest.Config) {
	t.Helper()
	cfg := harvest.DefaultConfig()
	cfg.Timeouts = harvest.Timings{}
	cfg.Output.Dir = t.TempDir()
	cfg.Server.RateBurst = 100
	if tweak != nil {
		tweak(cfg)
	}
	st, err := harvest.OpenStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)

	h := harvest.New(cfg, quiet,
		harvest.WithSessionOpener(func(context.Context) (harvest.Session, error) {
			return pageSession{p: risePage()}, nil
		}),
		harvest.WithSinks(harvest.SinksFromConfig(cfg, io.Discard, quiet)...),
		harvest.WithStore(st),
	)
	t.Cleanup(func() { h.Close() })

	s, err := newServer(cfg, h, quiet)
	require.NoError(t, err)
	s.validate = horosafe.ValidateAddress
	s.proc = fakeProcessor{}
	return s, cfg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), "body: %s", rec.Body.String())
	return m
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t, nil)
	rec := do(t, s.routes(), "GET", "/health", "")
	assert.Equal(t, 200, rec.Code)
	assert.Len(t, rec.Header().Get("X-Trace-ID"), 8)
}

func TestScrape_MissingInput(t *testing.T) {
	s, _ := testServer(t, nil)
	h := s.routes()

	rec := do(t, h, "POST", "/api/scrape", `{"links":["https://lms.example.edu/x"]}`)
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "Missing credentials or links", decodeBody(t, rec)["error"])

	rec = do(t, h, "POST", "/api/scrape", `{"email":"a@b.c","password":"x","links":["ftp://lms.example.edu/x"]}`)
	assert.Equal(t, 400, rec.Code)

	rec = do(t, h, "POST", "/api/scrape", `{not json`)
	assert.Equal(t, 400, rec.Code)
}

func TestScrapeRise(t *testing.T) {
	s, _ := testServer(t, nil)
	h := s.routes()

	rec := do(t, h, "POST", "/api/scrape-rise", `{}`)
	assert.Equal(t, 400, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Missing link", body["message"])

	rec = do(t, h, "POST", "/api/scrape-rise", `{"link":"`+riseAddr+`"}`)
	require.Equal(t, 200, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []any{
		"https://www.youtube.com/watch?v=rise001",
		"https://www.youtube.com/watch?v=rise002",
	}, body["links"])
}

func TestScrapeRise_PrivateAddressRejected(t *testing.T) {
	s, _ := testServer(t, nil)
	s.validate = horosafe.ValidateURL

	rec := do(t, s.routes(), "POST", "/api/scrape-rise", `{"link":"http://127.0.0.1/share/x"}`)
	assert.Equal(t, 400, rec.Code)
}

func TestDownloadsAfterRun(t *testing.T) {
	s, _ := testServer(t, nil)
	h := s.routes()

	rec := do(t, h, "GET", "/downloads/youtube_links.txt", "")
	assert.Equal(t, 404, rec.Code, "no run yet")

	require.Equal(t, 200, do(t, h, "POST", "/api/scrape-rise", `{"link":"`+riseAddr+`"}`).Code)

	rec = do(t, h, "GET", "/downloads/youtube_links.txt", "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "https://www.youtube.com/watch?v=rise001\nhttps://www.youtube.com/watch?v=rise002", strings.TrimSpace(rec.Body.String()))

	rec = do(t, h, "GET", "/downloads/youtube_links.docx", "")
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "docx is a zip package")

	rec = do(t, h, "GET", "/downloads/secrets.env", "")
	assert.Equal(t, 404, rec.Code)
}

func TestRunHistory(t *testing.T) {
	s, _ := testServer(t, nil)
	h := s.routes()

	rec := do(t, h, "POST", "/api/scrape-rise", `{"link":"`+riseAddr+`"}`)
	require.Equal(t, 200, rec.Code)
	runID, _ := decodeBody(t, rec)["runId"].(string)
	require.NotEmpty(t, runID)

	rec = do(t, h, "GET", "/api/runs", "")
	require.Equal(t, 200, rec.Code)
	var runs []harvest.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, 2, runs[0].LinkCount)

	rec = do(t, h, "GET", "/api/runs/"+runID, "")
	assert.Equal(t, 200, rec.Code)

	rec = do(t, h, "GET", "/api/runs/not-a-run", "")
	assert.Equal(t, 400, rec.Code)

	rec = do(t, h, "GET", "/api/runs/run_0190b5a4-7f3c-7a1e-9d2b-6c4e8f1a2b3c", "")
	assert.Equal(t, 404, rec.Code)
}

func TestProcessAndTranscript(t *testing.T) {
	s, _ := testServer(t, nil)
	h := s.routes()

	rec := do(t, h, "POST", "/api/process", `{"videos":[]}`)
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "No videos provided", decodeBody(t, rec)["error"])

	rec = do(t, h, "POST", "/api/process", `{"videos":["https://youtu.be/vid0001"]}`)
	require.Equal(t, 200, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	results := body["results"].(map[string]any)
	assert.Equal(t, "words", results["vid0001"].(map[string]any)["transcript"])

	rec = do(t, h, "GET", "/api/download/transcript/vid0001", "")
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "Transcript:\nwords\n\nSummary:\nshort", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transcript_vid0001.txt")

	rec = do(t, h, "GET", "/api/download/transcript/unknown1", "")
	assert.Equal(t, 404, rec.Code)
}

func TestProcess_NotConfigured(t *testing.T) {
	s, _ := testServer(t, nil)
	s.proc = nil
	rec := do(t, s.routes(), "POST", "/api/process", `{"videos":["https://youtu.be/vid0001"]}`)
	assert.Equal(t, 503, rec.Code)
}

func TestScrapeRateLimited(t *testing.T) {
	s, _ := testServer(t, func(c *harvest.Config) {
		c.Server.RateLimit = 0.001
		c.Server.RateBurst = 1
	})
	h := s.routes()

	assert.Equal(t, 200, do(t, h, "POST", "/api/scrape-rise", `{"link":"`+riseAddr+`"}`).Code)
	assert.Equal(t, 429, do(t, h, "POST", "/api/scrape-rise", `{"link":"`+riseAddr+`"}`).Code)
	assert.Equal(t, 200, do(t, h, "GET", "/health", "").Code)
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	s, _ := testServer(t, func(c *harvest.Config) {
		c.Server.BasicAuthUser = "admin"
		c.Server.BasicAuthHash = string(hash)
	})
	h := s.routes()

	assert.Equal(t, 200, do(t, h, "GET", "/health", "").Code)
	assert.Equal(t, 401, do(t, h, "GET", "/api/runs", "").Code)

	req := httptest.NewRequest("GET", "/api/runs", nil)
	req.SetBasicAuth("admin", "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
}

func TestBodyTooLarge(t *testing.T) {
	s, _ := testServer(t, func(c *harvest.Config) { c.Server.MaxBodyBytes = 16 })
	rec := do(t, s.routes(), "POST", "/api/scrape-rise", `{"link":"`+riseAddr+`"}`)
	assert.Equal(t, 413, rec.Code)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}
