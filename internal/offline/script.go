package offline

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"
)

//go:embed sw.js.tmpl
var scriptTemplate string

var scriptTmpl = template.Must(template.New("sw.js").Parse(scriptTemplate))

// Script renders the browser service worker for the given namespace. Assets
// are relative to the script's own directory, as in the Go worker; responses
// under the networkOnly prefixes are never stored.
func Script(cacheName string, assets, networkOnly []string) ([]byte, error) {
	if assets == nil {
		assets = DefaultAssets
	}
	if networkOnly == nil {
		networkOnly = []string{}
	}
	name, err := json.Marshal(cacheName)
	if err != nil {
		return nil, err
	}
	list, err := json.Marshal(assets)
	if err != nil {
		return nil, err
	}
	bypass, err := json.Marshal(networkOnly)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = scriptTmpl.Execute(&buf, struct {
		CacheName   string
		Assets      string
		NetworkOnly string
	}{string(name), string(list), string(bypass)})
	if err != nil {
		return nil, fmt.Errorf("render service worker: %w", err)
	}
	return buf.Bytes(), nil
}
