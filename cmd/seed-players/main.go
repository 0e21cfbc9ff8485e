// Seeds the players table from a CSV catalog export. Existing rows are left
// alone, so reruns are safe.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/gridironlabs/draftroom/internal/catalog"
	"github.com/gridironlabs/draftroom/internal/config"
)

func main() {
	csvPath := flag.String("csv", "players.csv", "path to the player CSV export")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *csvPath, err)
		os.Exit(1)
	}
	players, err := catalog.LoadCSV(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", *csvPath, err)
		os.Exit(1)
	}

	cfg := config.DBConfigFromEnv()
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "ping error: %v\n", err)
		os.Exit(1)
	}

	total, inserted, skipped, errs := len(players), 0, 0, 0
	for _, p := range players {
		res, err := db.Exec(`
            INSERT INTO players (id, name, position, team, bye_week, adp)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (id) DO NOTHING
        `, p.ID, p.Name, string(p.Position), p.Team, p.ByeWeek, p.ADP)
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert %s: %v\n", p.Name, err)
			errs++
			continue
		}
		n, _ := res.RowsAffected()
		if n == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	fmt.Printf("players: total=%d inserted=%d skipped=%d errors=%d\n", total, inserted, skipped, errs)
	if errs > 0 {
		os.Exit(1)
	}
}
