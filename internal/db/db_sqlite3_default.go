//go:build !sqlite3_cgo

package db

// The default build uses the wasm-embedded sqlite, so no C toolchain is needed.
import (
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const (
	driverID   = "ncruces/go-sqlite3"
	driverName = "sqlite3"
)
