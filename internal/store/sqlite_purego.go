//go:build !cgo_sqlite

package store

import (
	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName    = "sqlite"
	sqliteDriverPackage = "modernc.org/sqlite"
)
