package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/andresuchdata/replenish/internal/repository/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type dbKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey{}, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey{}).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) (*sql.DB, error) {
	db, ok := c.Context.Value(dbKey{}).(*sql.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}
	return db, nil
}

func salesFileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "sales-file",
		Usage:   "CSV file of sale events",
		Value:   "./data/seeds/sales.csv",
		EnvVars: []string{"SEED_SALES_FILE"},
	}
}

func stockFileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "stock-file",
		Usage:   "CSV file of stock snapshot rows",
		Value:   "./data/seeds/stock.csv",
		EnvVars: []string{"SEED_STOCK_FILE"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Create the analysis schema and load sales and stock data",
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Create the sale_events and stock_snapshots tables",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					return runInTx(c, applySchema)
				},
			},
			{
				Name:   "sales",
				Usage:  "Load sale events from CSV",
				Flags:  []cli.Flag{newDBURLFlag(), salesFileFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					return runInTx(c, func(ctx context.Context, tx *sql.Tx) error {
						return seedSalesFile(ctx, tx, c.String("sales-file"))
					})
				},
			},
			{
				Name:   "stock",
				Usage:  "Load stock snapshot rows from CSV",
				Flags:  []cli.Flag{newDBURLFlag(), stockFileFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					return runInTx(c, func(ctx context.Context, tx *sql.Tx) error {
						return seedStockFile(ctx, tx, c.String("stock-file"))
					})
				},
			},
			{
				Name:   "all",
				Usage:  "Create the schema, then load sales and stock",
				Flags:  []cli.Flag{newDBURLFlag(), salesFileFlag(), stockFileFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					return runInTx(c, func(ctx context.Context, tx *sql.Tx) error {
						if err := applySchema(ctx, tx); err != nil {
							return err
						}
						if err := seedSalesFile(ctx, tx, c.String("sales-file")); err != nil {
							return fmt.Errorf("error seeding sales: %w", err)
						}
						if err := seedStockFile(ctx, tx, c.String("stock-file")); err != nil {
							return fmt.Errorf("error seeding stock: %w", err)
						}
						return nil
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// runInTx commits fn's work only if every step succeeds.
func runInTx(c *cli.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(c.Context, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(c.Context, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	log.Println("Seeding completed successfully")
	return nil
}

func applySchema(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range postgres.SchemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
