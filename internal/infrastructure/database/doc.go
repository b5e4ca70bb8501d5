// Package database opens the legacy sensor recorder database.
//
// The recorder is a separate v1-era process that appends sensor readings
// to a SQLite file. huewatch opens it strictly read-only to serve
// long-range graphs; it never writes, migrates or repairs the schema.
//
// A busy timeout is set so reads tolerate the recorder's write bursts
// without "database is locked" errors.
package database
