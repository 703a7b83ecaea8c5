// Package web embeds the HTML templates and the application shell.
package web

import "embed"

// TemplatesFS embeds HTML templates for server-side rendering.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the offline shell: stylesheet, script, web manifest and icons.
//
//go:embed static/*
var StaticFS embed.FS
