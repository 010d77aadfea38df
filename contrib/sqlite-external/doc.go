// Package sqliteexternal registers the CGO SQLite driver
// (github.com/mattn/go-sqlite3) for builds that opt into it.
//
//	import _ "github.com/FocuswithJustin/JuniperChunks/contrib/sqlite-external"
//
// Build with:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite
//
// Without the tag, core/sqlite uses modernc.org/sqlite, which requires no
// CGO and cross-compiles cleanly. The CGO driver is faster on large progress
// databases.
package sqliteexternal
