package measure

import (
	"fmt"
	"image"
	"image/color"

	"specimen-gauge/internal/margin"
	"specimen-gauge/internal/segment"
	"specimen-gauge/pkg/colorutil"
	"specimen-gauge/pkg/geometry"

	"gocv.io/x/gocv"
)

const (
	fontScale  = 0.6
	lineHeight = 25
	thickness  = 2
)

type label struct {
	text string
	c    color.RGBA
}

// drawResult annotates the selected candidate and its measurement.
func drawResult(frame *gocv.Mat, best segment.Candidate, res Result, rep *margin.Report) {
	if len(best.Contour) > 0 {
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{best.Contour})
		gocv.DrawContours(frame, pv, -1, colorutil.Green, thickness)
		pv.Close()
	}

	drawRegion(frame, best.Region, colorutil.Yellow)

	if rep != nil {
		for _, s := range margin.Sides() {
			c := colorutil.OKText
			if rep.Counts[s] == 0 {
				c = colorutil.Red
			}
			gocv.Rectangle(frame, rep.Strips[s].ToImage(), c, 1)
		}
	}

	lines := []label{
		{fmt.Sprintf("Width: %.2f mm", res.WidthMM), colorutil.Orange},
		{fmt.Sprintf("Height: %.2f mm", res.HeightMM), colorutil.Orange},
	}
	switch {
	case res.MarginUnmeasurable:
		lines = append(lines, label{"Margin: unmeasurable", colorutil.Yellow})
	case res.MarginOK != nil && *res.MarginOK:
		lines = append(lines, label{"Margin OK", colorutil.OKText})
	case res.MarginOK != nil:
		lines = append(lines, label{"Margin insufficient", colorutil.Red})
	}

	for i, l := range lines {
		putLabel(frame, l.text, image.Pt(10, 30+i*lineHeight), l.c)
	}
}

func drawNoSpecimen(frame *gocv.Mat) {
	putLabel(frame, "No specimen", image.Pt(10, 30), colorutil.Red)
}

func drawRegion(frame *gocv.Mat, r geometry.Region, c color.RGBA) {
	switch v := r.(type) {
	case geometry.AxisAlignedRect:
		gocv.Rectangle(frame, geometry.RectInt(v).ToImage(), c, thickness)
	case geometry.RotatedRect:
		corners := v.Corners()
		pts := make([]image.Point, len(corners))
		for i, p := range corners {
			pts[i] = p.Round()
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
		defer pv.Close()
		gocv.Polylines(frame, pv, true, c, thickness)
	}
}

// putLabel draws text with a dark outline so it stays legible on any background.
func putLabel(frame *gocv.Mat, text string, at image.Point, c color.RGBA) {
	gocv.PutText(frame, text, at, gocv.FontHersheySimplex, fontScale, colorutil.Black, thickness+2)
	gocv.PutText(frame, text, at, gocv.FontHersheySimplex, fontScale, c, thickness)
}
