// Package embedded carries the provider catalog compiled into the binary.
package embedded

import (
	"embed"
)

// FS embeds the default providers.yaml at build time.
//
//go:embed catalog/*
var FS embed.FS
