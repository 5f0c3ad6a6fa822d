package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/journal-portal/backend/internal/config"
	"github.com/journal-portal/backend/internal/repository/postgres"
	"github.com/journal-portal/backend/migrations"
)

func main() {
	cfg := config.Load()
	if url := os.Getenv("DB_URL"); url != "" {
		cfg.Database.URL = url
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, cfg.Database.URL, cfg.Database.ConnectTimeout)
	if err != nil {
		fmt.Printf("Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		fmt.Printf("Failed to list migrations: %v\n", err)
		os.Exit(1)
	}
	sort.Strings(names)

	for _, name := range names {
		sql, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			fmt.Printf("Failed to read migration %s: %v\n", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			fmt.Printf("Migration %s failed: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("Migration %s applied\n", name)
	}

	fmt.Printf("%d migrations applied successfully!\n", len(names))
}
