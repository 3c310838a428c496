package main

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	_ "github.com/lib/pq"

	"github.com/rowguard/rowguard"
	"github.com/rowguard/rowguard/clinic"
	"github.com/rowguard/rowguard/internal/cli"
	"github.com/rowguard/rowguard/sqlstore"
)

var (
	simulateRole     string
	simulateUser     string
	simulateRelation string
	simulateOp       string
	simulateRowID    string
	simulateDB       string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Evaluate one access decision",
	Long: `Evaluate a single (principal, relation, operation, row) decision against
live data. Relationship paths are resolved with point lookups through the
database the target row lives in.

The database is taken from --db, the config file, or ROWGUARD_DATABASE_URL.
A postgres:// URL selects the PostgreSQL driver; anything else is treated
as a SQLite database path.`,
	Example: `  # May this patient portal user read invoice i-42?
  rowguard simulate --role authenticated --user u-17 \
    --relation invoices --op read --row i-42 --db postgres://localhost/clinic

  # Against a local SQLite fixture
  rowguard simulate --role billing --user u-3 \
    --relation payments --op modify --row pay-9 --db ./clinic.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		op, ok := rowguard.ParseOperation(simulateOp)
		if !ok {
			return cli.ConfigError(fmt.Sprintf("unknown operation %q (want read, create, modify, or delete)", simulateOp), nil)
		}
		principal := rowguard.Principal{
			ID:   resolveString(simulateUser, cfg.Simulate.User),
			Role: rowguard.Role(resolveString(simulateRole, cfg.Simulate.Role)),
		}
		if principal.ID == "" {
			return cli.ConfigError("--user is required", nil)
		}

		dsn := simulateDB
		if dsn == "" {
			var err error
			if dsn, err = cfg.DSN(); err != nil {
				return cli.ConfigError("resolving database", err)
			}
		}

		db, dialect, err := openDatabase(dsn)
		if err != nil {
			return cli.DBConnectError("opening database", err)
		}
		defer func() { _ = db.Close() }()

		store := sqlstore.New(db, clinic.Tables(), dialect)
		relation := rowguard.Relation(simulateRelation)

		ctx := cmd.Context()
		row, found, err := store.Lookup(ctx, relation, simulateRowID)
		if err != nil {
			return cli.GeneralError("loading target row", err)
		}
		if !found {
			// A missing row still gets a decision; relationship predicates
			// evaluate false against an absent row (fail-closed).
			row = rowguard.Row{Relation: relation, ID: simulateRowID}
		}

		engine := rowguard.NewEngine(clinic.Rules(), clinic.Paths(), store)
		decision, err := engine.Decide(ctx, principal, relation, op, row)
		if err != nil {
			return cli.GeneralError("evaluating decision", err)
		}

		if !quiet {
			fmt.Printf("%s %s %s %s:%s -> %s\n",
				principal.Role, principal.ID, op, relation, simulateRowID, decision)
		}
		if decision != rowguard.DecisionAllow {
			return cli.DeniedError("decision: deny")
		}
		return nil
	},
}

// openDatabase picks a driver from the DSN shape.
func openDatabase(dsn string) (*sql.DB, sqlstore.Dialect, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := sql.Open("postgres", dsn)
		return db, sqlstore.Postgres, err
	}
	db, err := sqlstore.OpenSQLite(dsn)
	return db, sqlstore.SQLite, err
}

func init() {
	simulateCmd.Flags().StringVar(&simulateRole, "role", "", "principal role")
	simulateCmd.Flags().StringVar(&simulateUser, "user", "", "principal user id")
	simulateCmd.Flags().StringVar(&simulateRelation, "relation", "", "target relation")
	simulateCmd.Flags().StringVar(&simulateOp, "op", "read", "operation: read, create, modify, delete")
	simulateCmd.Flags().StringVar(&simulateRowID, "row", "", "target row id")
	simulateCmd.Flags().StringVar(&simulateDB, "db", "", "database URL or SQLite path")
	_ = simulateCmd.MarkFlagRequired("relation")
	_ = simulateCmd.MarkFlagRequired("row")
}
