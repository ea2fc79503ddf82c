package main

import (
	"fmt"
	"os"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API serves content synchronized from Notion: lenses, entries and
// full-text search, plus an admin endpoint that triggers a sync.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Lensgate API
//   description: |
//     Read API over lenses and entries mirrored from two Notion data sources.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
