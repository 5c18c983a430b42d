package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/vidharvest/harvest"
	"github.com/hazyhaar/vidharvest/horosafe"
	"github.com/hazyhaar/vidharvest/idgen"
	"github.com/hazyhaar/vidharvest/shield"
)

// server holds the HTTP API dependencies. Runs are serialised by the
// Harvester itself.
type server struct {
	cfg      *harvest.Config
	h        *harvest.Harvester
	proc     harvest.Processor // nil disables /api/process
	limiter  *shield.RateLimiter
	validate func(string) error
	logger   *slog.Logger
}

func newServer(cfg *harvest.Config, h *harvest.Harvester, logger *slog.Logger) (*server, error) {
	s := &server{
		cfg:      cfg,
		h:        h,
		limiter:  shield.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, "/api/scrape").TrustProxy(cfg.Server.TrustProxy),
		validate: horosafe.ValidateURL,
		logger:   logger,
	}
	if cfg.Processing.Endpoint != "" {
		proc, err := harvest.NewHTTPProcessor(cfg)
		if err != nil {
			return nil, fmt.Errorf("processor: %w", err)
		}
		s.proc = proc
	}
	return s, nil
}

func serveHTTP(ctx context.Context, logger *slog.Logger, cfg *harvest.Config, h *harvest.Harvester) error {
	s, err := newServer(cfg, h, logger)
	if err != nil {
		return err
	}
	s.limiter.StartJanitor(ctx.Done())

	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":" + env("PORT", "3000")
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack(s.cfg.Server.MaxBodyBytes) {
		r.Use(mw)
	}
	if s.cfg.Server.BasicAuthUser != "" {
		r.Use(shield.BasicAuth(s.cfg.Server.BasicAuthUser, s.cfg.Server.BasicAuthHash, "vidharvest", "/health"))
	}
	r.Use(s.limiter.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/scrape", s.handleScrape)
	r.Post("/api/scrape-single", s.handleScrapeSingle)
	r.Post("/api/scrape-rise", s.handleScrapeRise)
	r.Post("/api/process", s.handleProcess)

	r.Get("/api/runs", s.handleListRuns)
	r.Get("/api/runs/{id}", s.handleGetRun)

	r.Get("/downloads/{name}", s.handleDownload)
	r.Get("/api/download/transcript/{videoID}", s.handleTranscript)
	return r
}

// --- scrape ---

func (s *server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string   `json:"email"`
		Password string   `json:"password"`
		Links    []string `json:"links"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || len(req.Links) == 0 {
		writeJSON(w, 400, map[string]string{"error": "Missing credentials or links"})
		return
	}
	for _, l := range req.Links {
		if err := s.validate(l); err != nil {
			writeError(w, 400, err)
			return
		}
	}
	out := s.h.RunModuleScrape(r.Context(), &harvest.Credentials{Email: req.Email, Password: req.Password}, req.Links)
	writeJSON(w, 200, map[string]any{"youtubeLinks": out})
}

func (s *server) handleScrapeSingle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Link     string `json:"link"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.Link == "" {
		writeJSON(w, 400, map[string]string{"error": "Missing credentials or link"})
		return
	}
	if err := s.validate(req.Link); err != nil {
		writeError(w, 400, err)
		return
	}
	out := s.h.RunSingleContentScrape(r.Context(), &harvest.Credentials{Email: req.Email, Password: req.Password}, req.Link)
	writeJSON(w, 200, map[string]any{"youtubeLinks": out})
}

func (s *server) handleScrapeRise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Link string `json:"link"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Link == "" {
		writeJSON(w, 400, map[string]any{"success": false, "message": "Missing link"})
		return
	}
	if err := s.validate(req.Link); err != nil {
		writeJSON(w, 400, map[string]any{"success": false, "message": err.Error()})
		return
	}
	out := s.h.RunLessonChain(r.Context(), req.Link)
	writeJSON(w, 200, map[string]any{
		"success": out.OK(),
		"links":   out.LinkStrings(),
		"status":  out.Status,
		"reason":  out.Reason,
		"runId":   out.ID,
	})
}

// --- processing ---

type processResult struct {
	Transcript string `json:"transcript,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (s *server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if s.proc == nil {
		writeJSON(w, 503, map[string]string{"error": "Processing is not configured"})
		return
	}
	var req struct {
		Videos []string `json:"videos"`
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.Videos) == 0 {
		writeJSON(w, 400, map[string]string{"error": "No videos provided"})
		return
	}
	jobs, err := s.h.Process(r.Context(), s.proc, req.Videos)
	if err != nil && len(jobs) == 0 {
		writeError(w, 500, err)
		return
	}
	results := make(map[string]processResult, len(jobs))
	for _, j := range jobs {
		key := j.Ref.ID()
		if j.Err != nil {
			results[key] = processResult{Error: j.Err.Error()}
			continue
		}
		results[j.Processed.VideoID] = processResult{Transcript: j.Processed.Transcript, Summary: j.Processed.Summary}
	}
	writeJSON(w, 200, map[string]any{"success": true, "results": results})
}

func (s *server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "videoID")
	if err := horosafe.ValidateIdentifier(id); err != nil {
		writeError(w, 400, err)
		return
	}
	p, err := s.h.Transcript(r.Context(), id)
	if errors.Is(err, harvest.ErrNotFound) {
		writeJSON(w, 404, map[string]string{"error": "Transcript not found"})
		return
	}
	if err != nil {
		writeError(w, 500, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="transcript_%s.txt"`, id))
	fmt.Fprintf(w, "Transcript:\n%s\n\nSummary:\n%s", p.Transcript, p.Summary)
}

// --- run history ---

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	st := s.h.Store()
	if st == nil {
		writeJSON(w, 404, map[string]string{"error": "Run history is disabled"})
		return
	}
	runs, err := st.ListRuns(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, 500, err)
		return
	}
	if runs == nil {
		runs = []harvest.RunSummary{}
	}
	writeJSON(w, 200, runs)
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	st := s.h.Store()
	if st == nil {
		writeJSON(w, 404, map[string]string{"error": "Run history is disabled"})
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := idgen.ParseRun(id); err != nil {
		writeError(w, 400, err)
		return
	}
	run, err := st.GetRun(r.Context(), id)
	if errors.Is(err, harvest.ErrNotFound) {
		writeJSON(w, 404, map[string]string{"error": "Run not found"})
		return
	}
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, run)
}

// --- downloads ---

func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name != harvest.TextFileName && name != harvest.DocxFileName {
		http.NotFound(w, r)
		return
	}
	path, err := horosafe.SafePath(s.cfg.Output.Dir, name)
	if err != nil {
		writeError(w, 400, err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeJSON(w, 404, map[string]string{"error": "No results yet"})
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	http.ServeFile(w, r, path)
}

// --- helpers ---

// decode reads a JSON body. It answers 413 past the body limit and 400 on
// malformed JSON.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		writeJSON(w, 413, map[string]string{"error": "Request body too large"})
		return false
	}
	writeError(w, 400, fmt.Errorf("invalid JSON: %w", err))
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
