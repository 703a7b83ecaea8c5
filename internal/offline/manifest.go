package offline

import (
	"path"
	"strings"
)

// DefaultAssets is the application shell, relative to the worker script's directory.
var DefaultAssets = []string{
	"",
	"index.html",
	"styles.css",
	"app.js",
	"manifest.json",
	"icon-192.png",
	"icon-512.png",
}

// Manifest is the set of URL paths pre-fetched on install.
type Manifest struct {
	Base string
	URLs []string
}

// BasePath returns scriptPath up to and including its last slash, so a worker
// served from /tracker/sw.js owns /tracker/.
func BasePath(scriptPath string) string {
	i := strings.LastIndex(scriptPath, "/")
	if i < 0 {
		return "/"
	}
	return scriptPath[:i+1]
}

// NewManifest resolves assets against the directory of scriptPath. A nil
// assets list means DefaultAssets.
func NewManifest(scriptPath string, assets []string) Manifest {
	if assets == nil {
		assets = DefaultAssets
	}
	base := BasePath(scriptPath)
	m := Manifest{Base: base, URLs: make([]string, 0, len(assets))}
	for _, a := range assets {
		a = strings.TrimPrefix(strings.TrimSpace(a), "/")
		if a == "" {
			m.URLs = append(m.URLs, base)
			continue
		}
		m.URLs = append(m.URLs, path.Join(base, a))
	}
	return m
}

// Contains reports whether p is one of the manifest URLs.
func (m Manifest) Contains(p string) bool {
	for _, u := range m.URLs {
		if u == p {
			return true
		}
	}
	return false
}
