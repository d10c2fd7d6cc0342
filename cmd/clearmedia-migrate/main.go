// Package main implements a standalone schema-bootstrap CLI: open (creating
// if absent) the SQLite database at --dir/clearmedia.db and ensure its
// schema is current, without starting the Scanner/Producer/Worker pipeline.
// Grounded on cmd/xg2g-migrate/main.go's shape (flag parsing, per-module
// report lines) adapted away from that tool's Bolt-to-SQLite session/resume/
// capabilities migration, which has no analogue here: this module never had
// a prior storage backend to migrate away from.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zhinengfan/clearmedia-go/internal/mediastore"
)

func main() {
	dataDir := flag.String("dir", ".", "directory containing (or to contain) clearmedia.db")
	resetStale := flag.Bool("reset-stale", false, "also reset any QUEUED or PROCESSING rows left over from an unclean shutdown")
	flag.Parse()

	if *dataDir == "" {
		fmt.Fprintln(os.Stderr, "error: --dir is required")
		os.Exit(1)
	}

	dbPath := filepath.Join(*dataDir, "clearmedia.db")
	fmt.Printf("ensuring schema at %s\n", dbPath)

	store, err := mediastore.NewSQLiteStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open/migrate sqlite store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	fmt.Println("schema up to date")

	if *resetStale {
		n, err := store.ResetStaleRows(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: reset stale rows: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("reset %d stale row(s) to PENDING\n", n)
	}
}
