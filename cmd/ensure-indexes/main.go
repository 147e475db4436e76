package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orderworker/internal/store"
)

const defaultTimeout = 30 * time.Second

func main() {
	var (
		uri      string
		database string
	)

	flag.StringVar(&uri, "uri", "", "Mongo connection URI (fallback: STORE_URI)")
	flag.StringVar(&database, "database", "orders", "Mongo database name (fallback: STORE_DATABASE)")
	flag.Parse()

	if strings.TrimSpace(uri) == "" {
		uri = strings.TrimSpace(os.Getenv("STORE_URI"))
	}
	if uri == "" {
		fail("STORE_URI (or -uri) is required")
	}
	if v := strings.TrimSpace(os.Getenv("STORE_DATABASE")); v != "" && database == "orders" {
		database = v
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, db, err := store.Connect(ctx, uri, database)
	if err != nil {
		fail("connect store: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	if err := store.NewMongoStore(db).EnsureIndexes(ctx); err != nil {
		fail("ensure indexes failed: %v", err)
	}

	fmt.Printf("ensure-indexes ok: database=%s\n", database)
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
