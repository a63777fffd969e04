package main

import (
	"flag"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	config "github.com/NordCoder/exsplit/internal/config/exsplit"
)

func main() {
	cfgPath := flag.String("config", "", "path to the exsplit config file")
	dir := flag.String("dir", "migrations", "migrations directory")
	cmd := flag.String("cmd", "up", "goose command: up, down, status")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		cfg, err := config.Load(*cfgPath, nil)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		dsn = cfg.Store.Postgres.DSN
	}

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	switch *cmd {
	case "up":
		err = goose.Up(db, *dir)
	case "down":
		err = goose.Down(db, *dir)
	case "status":
		err = goose.Status(db, *dir)
	default:
		log.Fatalf("unknown command %q", *cmd)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", *cmd, err)
	}
	log.Printf("migrations: %s OK", *cmd)
}
