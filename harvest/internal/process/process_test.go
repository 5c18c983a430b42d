package process

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/vidharvest/dbopen"
	"github.com/hazyhaar/vidharvest/harvest/internal/store"
	"github.com/hazyhaar/vidharvest/harvest/videoref"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestHTTPProcessor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "https://www.youtube.com/watch?v=abc123", in["link"])
		assert.Equal(t, "abc123", in["videoId"])
		_ = json.NewEncoder(w).Encode(Result{Transcript: "hello world", Summary: "greeting"})
	}))
	defer srv.Close()

	p, err := NewHTTPProcessor(srv.URL, time.Second)
	require.NoError(t, err)
	res, err := p.Process(context.Background(), "https://www.youtube.com/watch?v=abc123")
	require.NoError(t, err)
	assert.Equal(t, Result{VideoID: "abc123", Transcript: "hello world", Summary: "greeting"}, res)
}

func TestHTTPProcessor_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/big") {
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
			return
		}
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := NewHTTPProcessor(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = p.Process(context.Background(), "https://www.youtube.com/watch?v=x1")
	assert.ErrorContains(t, err, "status 503")

	big, err := NewHTTPProcessor(srv.URL+"/big", time.Second, WithMaxBody(16))
	require.NoError(t, err)
	_, err = big.Process(context.Background(), "https://www.youtube.com/watch?v=x1")
	assert.ErrorContains(t, err, "exceeds 16 bytes")

	_, err = NewHTTPProcessor("ftp://files.example.com/", time.Second)
	assert.Error(t, err)
}

type fakeProc struct {
	calls []videoref.Ref
	fail  map[videoref.Ref]bool
}

func (f *fakeProc) Process(_ context.Context, ref videoref.Ref) (Result, error) {
	f.calls = append(f.calls, ref)
	if f.fail[ref] {
		return Result{}, errors.New("downstream exploded")
	}
	return Result{VideoID: ref.ID(), Transcript: "t-" + ref.ID(), Summary: "s-" + ref.ID()}, nil
}

func TestDispatcher_RecordsAndCaches(t *testing.T) {
	st, err := store.New(dbopen.OpenMemory(t))
	require.NoError(t, err)
	a := videoref.Ref("https://www.youtube.com/watch?v=a1")
	b := videoref.Ref("https://www.youtube.com/watch?v=b2")
	c := videoref.Ref("https://www.youtube.com/watch?v=c3")
	proc := &fakeProc{fail: map[videoref.Ref]bool{b: true}}
	d := NewDispatcher(proc, DispatcherConfig{Recorder: st, Logger: quiet})

	jobs, err := d.Run(context.Background(), []videoref.Ref{a, b, c})
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "t-a1", jobs[0].Processed.Transcript)
	assert.Error(t, jobs[1].Err)
	assert.Equal(t, "s-c3", jobs[2].Processed.Summary)

	got, err := st.GetProcessed(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "c3", got.VideoID)

	// Second pass: a and c come from the store, b is retried.
	proc.calls = nil
	jobs, err = d.Run(context.Background(), []videoref.Ref{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, []videoref.Ref{b}, proc.calls)
	assert.True(t, jobs[0].Cached)
	assert.False(t, jobs[1].Cached)
	assert.True(t, jobs[2].Cached)
}

func TestDispatcher_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDispatcher(&fakeProc{}, DispatcherConfig{Rate: 0.001, Logger: quiet})

	// The first token is available immediately; Wait still honours a done ctx.
	jobs, err := d.Run(ctx, []videoref.Ref{"https://www.youtube.com/watch?v=a1"})
	assert.Error(t, err)
	assert.Empty(t, jobs)
}
