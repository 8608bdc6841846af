// Package web embeds the built explorer page.
package web

import "embed"

//go:embed dist
var Assets embed.FS
