package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"specimen-gauge/internal/session"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	batchFlags   annotationFlags
	batchPersist bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Measure every image in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		files, err := imageFiles(args[0])
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no supported images in %s", args[0])
		}

		opts, err := sessionOptions(false)
		if err != nil {
			return err
		}

		var persister session.Persister
		if batchPersist {
			p, release, err := openPersister(ctx)
			if err != nil {
				return err
			}
			defer release()
			persister = p
		}

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Measuring"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)

		type row struct {
			file string
			line string
		}
		rows := make([]row, 0, len(files))
		failed := 0
		for _, f := range files {
			if ctx.Err() != nil {
				break
			}
			c, err := session.OneShot(ctx, session.OpenFile(f), opts, persister, batchFlags.annotation())
			switch {
			case c == nil:
				failed++
				rows = append(rows, row{f, "error: " + err.Error()})
			case err != nil:
				failed++
				rows = append(rows, row{f, c.Result.String() + " (" + err.Error() + ")"})
			default:
				rows = append(rows, row{f, c.Result.String()})
			}
			c.Close()
			_ = bar.Add(1)
		}
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)

		for _, r := range rows {
			fmt.Printf("%-40s %s\n", filepath.Base(r.file), r.line)
		}
		fmt.Printf("\n%d images, %d failed\n", len(rows), failed)
		return ctx.Err()
	},
}

// imageFiles lists supported images directly inside dir, sorted by name.
func imageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !session.IsSupportedImage(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	batchFlags.register(batchCmd)
	batchCmd.Flags().BoolVar(&batchPersist, "persist", false, "Store every capture with the configured store")
	rootCmd.AddCommand(batchCmd)
}
