package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/vidharvest/harvest/internal/navigate"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, navigate.DefaultTimings(), c.Timeouts)
	assert.Equal(t, navigate.DefaultLimits(), c.Limits)
	assert.Equal(t, navigate.DefaultSelectors(), c.Selectors)
	assert.Equal(t, "headless", c.Browser.Stealth)
	assert.True(t, c.Output.Text)
	assert.True(t, c.Output.Docx)
	assert.Equal(t, ".", c.Output.Dir)
	assert.False(t, c.Server.TrustProxy)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidharvest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
browser:
  stealth: headful
  resource_blocking: [images, fonts]
timeouts:
  settle: 2s
limits:
  max_pages: 5
selectors:
  next: "button.next"
output:
  dir: /tmp/out
  docx: false
sinks:
  - type: webhook
    url: https://hooks.example.com/runs
store:
  path: /tmp/runs.db
server:
  trust_proxy: true
`), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "headful", c.Browser.Stealth)
	assert.Equal(t, []string{"images", "fonts"}, c.Browser.ResourceBlocking)
	assert.Equal(t, 2*time.Second, c.Timeouts.Settle)
	// Unlisted waits keep their defaults.
	assert.Equal(t, navigate.DefaultTimings().Navigation, c.Timeouts.Navigation)
	assert.Equal(t, 5, c.Limits.MaxPages)
	assert.Equal(t, 2, c.Limits.MaxStalls)
	assert.Equal(t, "button.next", c.Selectors.Next)
	assert.Equal(t, "#i0118", c.Selectors.Secret)
	assert.Equal(t, "/tmp/out", c.Output.Dir)
	assert.True(t, c.Output.Text)
	assert.False(t, c.Output.Docx)
	require.Len(t, c.Sinks, 1)
	assert.Equal(t, 3, c.Sinks[0].Retries)
	assert.Equal(t, "/tmp/runs.db", c.Store.Path)
	assert.True(t, c.Server.TrustProxy)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":        "browser: [",
		"webhook no url":  "sinks:\n  - type: webhook\n",
		"unknown sink":    "sinks:\n  - type: nats\n",
		"half basic auth": "server:\n  basic_auth_user: admin\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
