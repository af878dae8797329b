// Package web embeds the dashboard templates and static assets.
package web

import "embed"

// TemplatesFS holds the page and partial templates parsed at startup.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the htmx event glue, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
