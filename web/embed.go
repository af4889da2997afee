// Package web embeds the ledger pages and their assets so the binaries
// ship self-contained.
package web

import "embed"

//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS
