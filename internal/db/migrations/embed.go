// Package migrations holds the goose SQL files for users, catalogue entities
// and moderation records.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
