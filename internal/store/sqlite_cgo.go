//go:build cgo_sqlite

package store

// Built with -tags cgo_sqlite (CGO_ENABLED=1) to use mattn/go-sqlite3.

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteDriverName    = "sqlite3"
	sqliteDriverPackage = "github.com/mattn/go-sqlite3"
)
