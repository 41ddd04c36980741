package cli

import (
	"fmt"

	"specimen-gauge/internal/store"

	"github.com/spf13/cobra"
)

var schemaApply bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the PostgreSQL schema, or apply it with --apply",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !schemaApply {
			fmt.Fprintln(cmd.OutOrStdout(), store.Schema)
			return nil
		}
		if cfg.Store.DatabaseURL == "" {
			return fmt.Errorf("no database URL; set DATABASE_URL or store.database_url")
		}
		pg, err := store.OpenPG(cmd.Context(), cfg.Store.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema applied")
		return nil
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaApply, "apply", false, "Apply the schema to the configured database")
	rootCmd.AddCommand(schemaCmd)
}
