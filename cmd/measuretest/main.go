// Command measuretest runs one segmentation strategy on an image and dumps
// every candidate, the ranked pick and the margin report.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"specimen-gauge/internal/calibration"
	"specimen-gauge/internal/margin"
	"specimen-gauge/internal/measure"
	"specimen-gauge/internal/rank"
	"specimen-gauge/internal/segment"
	"specimen-gauge/internal/session"
	"specimen-gauge/internal/synth"

	"gocv.io/x/gocv"
)

func main() {
	imagePath := flag.String("image", "", "Path to specimen image (PNG, JPEG, TIFF, BMP)")
	synthetic := flag.Bool("synthetic", false, "Measure a generated 640x480 scene instead of -image")
	band := flag.Int("band", 5, "Tracer band width for -synthetic (0 = none)")
	omit := flag.String("omit", "", "Comma-separated sides to leave without tracer for -synthetic")
	strategyID := flag.String("strategy", segment.IDRedHue, "Strategy: "+strings.Join(segment.IDs(), ", "))
	policyID := flag.String("policy", rank.IDLargest, "Policy: largest, second-largest, area-filtered[:N]")
	rig := flag.String("rig", calibration.PresetLive, "Calibration preset: live or bench")
	out := flag.String("out", "", "Write the annotated frame to this PNG")
	flag.Parse()

	if *imagePath == "" && !*synthetic {
		fmt.Println("Usage: measuretest -image <path> | -synthetic [-strategy red-hue] [-policy largest] [-rig live] [-out annotated.png]")
		os.Exit(1)
	}

	prof, ok := calibration.Preset(*rig)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown rig %q\n", *rig)
		os.Exit(1)
	}
	strategy, err := segment.New(*strategyID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	policy, err := rank.ParsePolicy(*policyID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	var frame gocv.Mat
	if *synthetic {
		var sides []string
		if *omit != "" {
			sides = strings.Split(*omit, ",")
		}
		frame = synth.Centered(100, 80).WithBand(*band, sides...).Render()
		fmt.Println("Generated synthetic 640x480 scene, 100x80 specimen")
	} else {
		frame, err = session.LoadImage(*imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded image: %dx%d pixels\n", frame.Cols(), frame.Rows())
	}
	defer frame.Close()

	if w, h := prof.Resolution(); w > 0 && (frame.Cols() != w || frame.Rows() != h) {
		fmt.Printf("Warning: calibration is for %dx%d, frame is %dx%d\n", w, h, frame.Cols(), frame.Rows())
	}
	fmt.Printf("Calibration: %s (margin %d px)\n", prof, prof.MarginPixels())
	fmt.Printf("Strategy: %s  Policy: %s\n", strategy.ID(), policy.ID())

	// List every candidate before ranking
	seg, err := strategy.Segment(frame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Segmentation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nFound %d candidates:\n", len(seg.Candidates))
	fmt.Printf("%-4s %-13s %10s %8s %8s %8s %8s %9s %9s\n",
		"#", "Kind", "Area", "X", "Y", "W px", "H px", "W mm", "H mm")
	fmt.Println(strings.Repeat("-", 86))
	for i, c := range seg.Candidates {
		b := c.Region.Bounds()
		w, h := c.Region.Extents()
		fmt.Printf("%-4d %-13s %10.0f %8d %8d %8.1f %8.1f %9.2f %9.2f\n",
			i, c.Region.Kind(), c.Area, b.X, b.Y, w, h, prof.WidthMM(w), prof.HeightMM(h))
	}

	if best, ok := rank.Rank(seg.Candidates, policy, prof); ok && seg.HasTracer() {
		rep, err := margin.Check(best.Region, seg.Tracer, prof)
		if err != nil {
			fmt.Printf("\nMargin: %v\n", err)
		} else {
			fmt.Printf("\nMargin strips (box %+v):\n", rep.Box)
			for _, s := range margin.Sides() {
				fmt.Printf("  %-7s %5d tracer px\n", s, rep.Counts[s])
			}
		}
	}
	seg.Close()

	res, err := measure.NewEngine(measure.Options{Overlay: *out != ""}).Measure(&frame, strategy, policy, prof)
	if err != nil {
		fmt.Printf("Measurement error: %v\n", err)
	}
	fmt.Printf("\nResult: %s\n", res)

	if *out != "" {
		if ok := gocv.IMWrite(*out, frame); !ok {
			fmt.Fprintf(os.Stderr, "Failed to write %s\n", *out)
			os.Exit(1)
		}
		fmt.Printf("Annotated frame written to %s\n", *out)
	}
}
