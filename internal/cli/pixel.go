package cli

import (
	"fmt"
	"image/color"
	"io"
	"strconv"

	"specimen-gauge/internal/segment"
	"specimen-gauge/internal/session"
	"specimen-gauge/pkg/colorutil"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var pixelCmd = &cobra.Command{
	Use:   "pixel <image> <x> <y>",
	Short: "Print the color of one pixel and how each strategy classifies it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Wrap(err, "x")
		}
		y, err := strconv.Atoi(args[2])
		if err != nil {
			return errors.Wrap(err, "y")
		}

		frame, err := session.LoadImage(args[0])
		if err != nil {
			return err
		}
		defer frame.Close()

		if x < 0 || y < 0 || x >= frame.Cols() || y >= frame.Rows() {
			return fmt.Errorf("pixel (%d,%d) outside %dx%d image", x, y, frame.Cols(), frame.Rows())
		}
		v := frame.GetVecbAt(y, x)
		describePixel(cmd.OutOrStdout(), v[2], v[1], v[0])
		return nil
	},
}

func describePixel(w io.Writer, r, g, b uint8) {
	hsv := colorutil.ToHSV(color.RGBA{R: r, G: g, B: b, A: 255})
	fmt.Fprintf(w, "RGB %d %d %d  HSV %.0f %.0f %.0f\n", r, g, b, hsv.H, hsv.S, hsv.V)

	for _, opts := range []segment.RedHueOptions{segment.DefaultRedHueOptions(), segment.RedDyeOptions()} {
		red, dark := opts.Classify(hsv)
		fmt.Fprintf(w, "  %-13s red=%t dark=%t\n", segment.NewRedHue(opts).ID(), red, dark)
	}
	fmt.Fprintf(w, "  %-13s skin=%t\n", segment.IDSkinInverse, segment.DefaultSkinOptions().IsSkin(hsv))
}

func init() {
	rootCmd.AddCommand(pixelCmd)
}
