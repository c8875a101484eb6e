// Package debugviz renders a matched path to a PNG for visual inspection:
// the raw trajectory as a scatter, each matched edge run as a colored
// line, and unmatched runs as a dashed line in a fixed warning color.
package debugviz

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/routetrace/mapmatch/internal/kalman"
	"github.com/routetrace/mapmatch/internal/pathfmt"
)

// unmatchedColor is the fixed color used for off-network (unmatched) runs,
// regardless of how many matched edges are being rendered alongside them.
var unmatchedColor = color.RGBA{R: 200, G: 40, B: 40, A: 255}

// rawPointColor is the fixed color used for the raw trajectory scatter.
var rawPointColor = color.RGBA{R: 120, G: 120, B: 120, A: 200}

// RenderPath writes a PNG to path showing the raw trajectory states and
// the matched segments over them. width/height are physical page
// dimensions in inches.
func RenderPath(path string, states []*kalman.State, segments []pathfmt.MatchedSegment, width, height float64) error {
	p := plot.New()
	p.Title.Text = "Map-matched path"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	rawPts := make(plotter.XYs, len(states))
	for i, s := range states {
		rawPts[i] = plotter.XY{X: s.X.AtVec(0), Y: s.X.AtVec(1)}
	}
	rawScatter, err := plotter.NewScatter(rawPts)
	if err != nil {
		return fmt.Errorf("debugviz: failed to build raw trajectory scatter: %w", err)
	}
	rawScatter.Color = rawPointColor
	rawScatter.Radius = vg.Points(2)
	p.Add(rawScatter)
	p.Legend.Add("raw trajectory", rawScatter)

	colors := matchedColors(countMatched(segments))
	matchedIdx := 0
	for _, seg := range segments {
		pts := make(plotter.XYs, len(seg.Geometry))
		for i, pt := range seg.Geometry {
			pts[i] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("debugviz: failed to build segment line: %w", err)
		}
		line.Width = vg.Points(2)

		if seg.Edge == nil {
			line.Color = unmatchedColor
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
			p.Add(line)
			p.Legend.Add("unmatched", line)
			continue
		}

		line.Color = colors[matchedIdx]
		matchedIdx++
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s->%s", seg.Edge.U, seg.Edge.V), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, path); err != nil {
		return fmt.Errorf("debugviz: failed to save plot: %w", err)
	}
	return nil
}

func countMatched(segments []pathfmt.MatchedSegment) int {
	n := 0
	for _, seg := range segments {
		if seg.Edge != nil {
			n++
		}
	}
	return n
}

// matchedColors returns n visually distinct colors spread around the hue
// wheel, one per matched segment.
func matchedColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.65, 0.45)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
