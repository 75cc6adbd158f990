// Package resources embeds static assets shipped with the bot binary.
package resources

import "embed"

//go:embed migrations/*.sql blacklist.yml dashboard.html
var FS embed.FS
