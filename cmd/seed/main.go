// Applies the database schema and reports what is already there.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"commerce-chat-bot/internal/config"
	pg "commerce-chat-bot/internal/infra/db/postgres"
)

const schemaPath = "deploy/postgres/init.sql"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		log.Fatalf("read %s: %v", schemaPath, err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied")

	for _, table := range []string{"conversations", "event_claims", "jobs"} {
		var n int
		if err := pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			log.Fatalf("count %s: %v", table, err)
		}
		fmt.Printf("  %-13s %d rows\n", table, n)
	}
}
