package cli

import (
	"fmt"
	"io"
	"time"

	"specimen-gauge/internal/config"
	"specimen-gauge/internal/measure"
	"specimen-gauge/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var samplesLimit int

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List stored samples, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch cfg.Store.Kind {
		case config.StorePostgres:
			pg, err := store.OpenPG(cmd.Context(), cfg.Store.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer pg.Close()
			list, err := pg.List(cmd.Context(), samplesLimit)
			if err != nil {
				return err
			}
			for _, s := range list {
				printSample(out, s.ID, s.CapturedAt, s.Result, s.Operator)
			}
		case config.StoreDir:
			d, err := store.NewDirStore(cfg.Store.Dir)
			if err != nil {
				return err
			}
			list, err := d.List()
			if err != nil {
				return err
			}
			// List is oldest first
			for i := len(list) - 1; i >= 0 && len(list)-i <= samplesLimit; i-- {
				s := list[i]
				printSample(out, s.ID, s.CapturedAt, s.Result, s.Operator)
			}
		default:
			return fmt.Errorf("no store configured")
		}
		return nil
	},
}

func printSample(w io.Writer, id uuid.UUID, at time.Time, r measure.Result, operator string) {
	fmt.Fprintf(w, "%s  %s  %-40s %s\n", id, at.Local().Format("2006-01-02 15:04"), r, operator)
}

func init() {
	samplesCmd.Flags().IntVarP(&samplesLimit, "limit", "n", 50, "Maximum samples to list")
	rootCmd.AddCommand(samplesCmd)
}
