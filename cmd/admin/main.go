package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Clears the postgres wallet store so the next run syncs from genesis.
func main() {
	_ = godotenv.Load()

	connStr := flag.String("db", os.Getenv("WALLETSYNC_DATABASE_URL"), "postgres connection string")
	keepBalance := flag.Bool("keep-balance", false, "keep the stored aggregate balance")
	flag.Parse()

	if *connStr == "" {
		fmt.Fprintln(os.Stderr, "database URL required (-db or WALLETSYNC_DATABASE_URL)")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", *connStr)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	stmt := "TRUNCATE wallet_transactions RESTART IDENTITY; DELETE FROM sync_state"
	if *keepBalance {
		stmt += " WHERE key <> 'aggregate_balance'"
	}
	if _, err := db.Exec(stmt); err != nil {
		panic(err)
	}

	fmt.Println("Successfully reset wallet transactions and sync state")
}
