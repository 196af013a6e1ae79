package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/securebackend/sbops/adapters/store/rdb"
)

// newCmdAdmin returns the parent command for admin operations.
func newCmdAdmin() *cobra.Command {
	c := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands operating on the sqlite store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.AddCommand(newCmdAdminImport())
	return c
}

func newCmdAdminImport() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import sbops.yml into the sqlite database given by --db-url",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			dbURL := getDBURL(cmd)
			if !strings.HasPrefix(dbURL, "sqlite:") && !strings.HasPrefix(dbURL, "sqlite3:") {
				return fmt.Errorf("admin import needs a sqlite: db-url, got %s", dbURL)
			}
			if file == "" {
				return fmt.Errorf("config file required (-f)")
			}
			cfg, err := loadConfig(cmd, file)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config %s: %w", file, err)
			}
			db, err := openDB(dbURL)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			ctx, cleanup := withCmdRunLogger(ctx, "admin.import", file)
			defer func() { cleanup(err) }()

			res, err := rdb.ImportConfig(ctx, db, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d created, %d updated\n", file, res.Created, res.Updated)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "sbops.yml", "Path to sbops.yml")
	return cmd
}
