// CLAUDE:SUMMARY Maps embed, short-link, watch and embedly-wrapped YouTube addresses to one canonical watch URL.
// Package videoref defines the canonical video reference and the run-scoped
// result set. Every component that compares two video addresses goes through
// Normalize; no other code decides identity.
package videoref

import (
	"net/url"
	"strings"
)

// Ref is a canonical video reference: https://www.youtube.com/watch?v={id}.
type Ref string

const watchPrefix = "https://www.youtube.com/watch?v="

// ID returns the video identifier carried by the reference.
func (r Ref) ID() string {
	return strings.TrimPrefix(string(r), watchPrefix)
}

func (r Ref) String() string { return string(r) }

// FromID builds the canonical reference for a bare video identifier.
func FromID(id string) (Ref, bool) {
	if strings.ContainsAny(id, "/?#&") {
		return "", false
	}
	return canonical(id)
}

// Normalize maps a raw video address to its canonical Ref. It recognises, in
// order: /embed/{id} paths, youtu.be/{id} short links, watch?v={id} links and
// cdn.embedly.com wrappers whose url or src parameter holds a watch link.
// Anything else, including empty or unparseable input, returns false.
func Normalize(raw string) (Ref, bool) {
	return normalize(raw, true)
}

func normalize(raw string, unwrap bool) (Ref, bool) {
	u, ok := parse(raw)
	if !ok {
		return "", false
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case isYouTubeHost(host) && strings.HasPrefix(u.Path, "/embed/"):
		return canonical(strings.TrimPrefix(u.Path, "/embed/"))
	case host == "youtu.be" || strings.HasSuffix(host, ".youtu.be"):
		return canonical(strings.TrimPrefix(u.Path, "/"))
	case isYouTubeHost(host) && u.Query().Get("v") != "":
		return canonical(u.Query().Get("v"))
	case unwrap && isEmbedlyHost(host):
		q := u.Query()
		inner := q.Get("url")
		if inner == "" {
			inner = q.Get("src")
		}
		// url.Query already decoded one level; wrappers are sometimes double-encoded.
		if strings.Contains(inner, "%") {
			if dec, err := url.QueryUnescape(inner); err == nil {
				inner = dec
			}
		}
		if !strings.Contains(inner, "youtube.com/watch") {
			return "", false
		}
		return normalize(inner, false)
	}
	return "", false
}

// MatchesHost reports whether raw points at a known video host or a wrapper
// around one. It does not validate the identifier.
func MatchesHost(raw string) bool {
	u, ok := parse(raw)
	if !ok {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if isYouTubeHost(host) || host == "youtu.be" || strings.HasSuffix(host, ".youtu.be") {
		return true
	}
	return isEmbedlyHost(host) && strings.Contains(u.RawQuery, "youtube.com")
}

func parse(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	raw = strings.ReplaceAll(raw, "&amp;", "&")
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

func isYouTubeHost(host string) bool {
	for _, base := range []string{"youtube.com", "youtube-nocookie.com"} {
		if host == base || strings.HasSuffix(host, "."+base) {
			return true
		}
	}
	return false
}

func isEmbedlyHost(host string) bool {
	return host == "cdn.embedly.com"
}

func canonical(id string) (Ref, bool) {
	if i := strings.IndexAny(id, "/?#&"); i >= 0 {
		id = id[:i]
	}
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if !isIDChar(r) {
			return "", false
		}
	}
	return Ref(watchPrefix + id), true
}

func isIDChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-'
}
