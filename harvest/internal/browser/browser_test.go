package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/stretchr/testify/assert"

	"github.com/hazyhaar/vidharvest/harvest/surface"
)

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"images": true, "fonts": true}
	assert.True(t, shouldBlock(set, "Image"))
	assert.True(t, shouldBlock(set, "font"))
	assert.False(t, shouldBlock(set, "Stylesheet"))
	assert.False(t, shouldBlock(set, "Document"))
	assert.False(t, shouldBlock(map[string]bool{"document": true}, "Document"))
}

func TestParseStealth(t *testing.T) {
	assert.Equal(t, LevelPlain, ParseStealth("plain"))
	assert.Equal(t, LevelHeadful, ParseStealth("xvfb"))
	assert.Equal(t, LevelHeadless, ParseStealth(""))
	assert.Equal(t, LevelHeadless, ParseStealth("bogus"))
}

func TestClassify(t *testing.T) {
	stale := classify("click", &cdp.Error{Code: -32000, Message: "Could not find node with given id"})
	assert.True(t, errors.Is(stale, surface.ErrDetached))

	gone := classify("text", &rod.ObjectNotFoundError{})
	assert.True(t, errors.Is(gone, surface.ErrDetached))

	canceled := classify("eval", fmt.Errorf("wrapped: %w", context.Canceled))
	assert.True(t, errors.Is(canceled, context.Canceled))
	assert.False(t, errors.Is(canceled, surface.ErrDetached))

	other := classify("eval", errors.New("boom"))
	assert.False(t, errors.Is(other, surface.ErrDetached))
	assert.Contains(t, other.Error(), "browser: eval: boom")
}

func TestManagerClosed(t *testing.T) {
	m := NewManager(Config{})
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
	_, err := m.Start(context.Background())
	assert.Error(t, err)
	assert.Nil(t, m.Browser())
}
