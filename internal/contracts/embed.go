// Package contracts holds the JSON schemas persisted and imported payloads
// are checked against.
package contracts

import "embed"

//go:embed schemas/*.json
var schemaFS embed.FS
