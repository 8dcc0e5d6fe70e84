// Package db carries the SQL schema compiled into the binary.
package db

import "embed"

// Migrations holds the numbered up/down files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
