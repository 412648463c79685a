// Package migrations embeds the alert-store schema files so a single
// binary deploys without external file dependencies. SQLite and PostgreSQL
// dialects live in separate directories; the runner picks by driver.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var Files embed.FS
