package cli

import (
	"fmt"
	"os"

	"specimen-gauge/internal/measure"
	"specimen-gauge/internal/session"

	"github.com/spf13/cobra"
)

var (
	measureFlags   annotationFlags
	measurePersist bool
	measureOut     string
	measureJSON    bool
)

var measureCmd = &cobra.Command{
	Use:   "measure <image>",
	Short: "Measure a stored image once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		opts, err := sessionOptions(cfg.Overlay || measureOut != "")
		if err != nil {
			return err
		}

		var persister session.Persister
		if measurePersist {
			p, release, err := openPersister(ctx)
			if err != nil {
				return err
			}
			defer release()
			if p == nil {
				return fmt.Errorf("--persist needs a store; config store kind is %q", cfg.Store.Kind)
			}
			persister = p
		}

		c, err := session.OneShot(ctx, session.OpenFile(args[0]), opts, persister, measureFlags.annotation())
		if c == nil {
			return err
		}
		defer c.Close()
		if c.Err != nil {
			logger.Warnw("cli: measurement", "image", args[0], "error", c.Err)
		}

		if measureJSON {
			data, jerr := measure.Encode(c.Result)
			if jerr != nil {
				return jerr
			}
			fmt.Println(string(data))
		} else {
			fmt.Printf("%s: %s\n", args[0], c.Result)
		}

		if measureOut != "" {
			png, perr := c.AnnotatedPNG()
			if perr != nil {
				return perr
			}
			if werr := os.WriteFile(measureOut, png, 0o644); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
		if persister != nil {
			fmt.Printf("Stored sample %s\n", c.ID)
		}
		return nil
	},
}

func init() {
	measureFlags.register(measureCmd)
	measureCmd.Flags().BoolVar(&measurePersist, "persist", false, "Store the capture with the configured store")
	measureCmd.Flags().StringVarP(&measureOut, "out", "o", "", "Write the annotated frame to this PNG")
	measureCmd.Flags().BoolVar(&measureJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(measureCmd)
}
