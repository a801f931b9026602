package main

// database/sql drivers for the remote SQL dialects. sqlite3 is registered
// by the cache package.
import (
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/go-libsql"
)
