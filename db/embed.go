// Package db provides the embedded database schema and sample catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Catalog is the bundled sample catalog: items and offers in JSON.
//
//go:embed seed/catalog.json
var Catalog []byte
