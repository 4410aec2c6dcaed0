package radar

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/satfarm/farmcarbon/internal/carbon"
)

// SVGOptions controls the size and caption of an SVG rendering.
type SVGOptions struct {
	// Size is the width and height of the square image in pixels (default
	// 420, at least 160).
	Size int

	// Title is drawn above the chart when non-empty.
	Title string
}

const (
	defaultSize  = 420
	minSize      = 160
	labelPadding = 28.0
	titleHeight  = 24.0
)

// point is an SVG coordinate.
type point struct {
	X, Y float64
}

// SVG writes a radar chart of p as a standalone SVG document.
// Gridlines are drawn every StepSize from ScaleMin to ScaleMax; values outside
// the scale are clamped for drawing only.
func SVG(w io.Writer, p carbon.VegetationPercentages, opts SVGOptions) error {
	size := float64(opts.Size)
	switch {
	case size <= 0:
		size = defaultSize
	case size < minSize:
		size = minSize
	}

	top := 0.0
	if opts.Title != "" {
		top = titleHeight
	}

	cx := size / 2
	cy := top + (size-top)/2
	radius := (size-top)/2 - labelPadding - 8

	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		int(size), int(size), int(size), int(size))
	bw.WriteString(`<rect width="100%" height="100%" fill="white"/>` + "\n")

	if opts.Title != "" {
		fmt.Fprintf(bw, `<text x="%.2f" y="%.2f" text-anchor="middle" font-family="sans-serif" font-size="14">%s</text>`+"\n",
			cx, titleHeight-6, escape(opts.Title))
	}

	// Concentric grid polygons with tick labels
	bw.WriteString(`<g class="grid" fill="none" stroke="rgba(0,0,0,0.15)">` + "\n")
	for step := ScaleMin + StepSize; step <= ScaleMax; step += StepSize {
		ring := make([]point, len(axisLabels))
		for i := range axisLabels {
			ring[i] = vertex(cx, cy, radius, i, step)
		}
		fmt.Fprintf(bw, `<polygon points="%s"/>`+"\n", pointsAttr(ring))
	}
	bw.WriteString("</g>\n")

	bw.WriteString(`<g class="ticks" font-family="sans-serif" font-size="10" fill="#666">` + "\n")
	for step := ScaleMin; step <= ScaleMax; step += StepSize {
		pt := vertex(cx, cy, radius, 0, step)
		fmt.Fprintf(bw, `<text x="%.2f" y="%.2f">%d</text>`+"\n", pt.X+3, pt.Y+3, int(step))
	}
	bw.WriteString("</g>\n")

	// Spokes and axis labels
	bw.WriteString(`<g class="axes" stroke="rgba(0,0,0,0.2)">` + "\n")
	for i := range axisLabels {
		end := vertex(cx, cy, radius, i, ScaleMax)
		fmt.Fprintf(bw, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"/>`+"\n", cx, cy, end.X, end.Y)
	}
	bw.WriteString("</g>\n")

	bw.WriteString(`<g class="labels" font-family="sans-serif" font-size="12" fill="#333">` + "\n")
	for i, label := range axisLabels {
		pt := vertex(cx, cy, radius+labelPadding/2+4, i, ScaleMax)
		fmt.Fprintf(bw, `<text x="%.2f" y="%.2f" text-anchor="%s" dominant-baseline="middle">%s</text>`+"\n",
			pt.X, pt.Y, anchor(i), escape(label))
	}
	bw.WriteString("</g>\n")

	// Data series
	vals := p.Values()
	series := make([]point, len(vals))
	for i, v := range vals {
		series[i] = vertex(cx, cy, radius, i, carbon.Clamp(v, ScaleMin, ScaleMax))
	}
	fmt.Fprintf(bw, `<polygon class="series" points="%s" fill="%s" stroke="%s" stroke-width="2"/>`+"\n",
		pointsAttr(series), coverFill, coverStroke)
	for _, pt := range series {
		fmt.Fprintf(bw, `<circle class="point" cx="%.2f" cy="%.2f" r="3" fill="%s"/>`+"\n", pt.X, pt.Y, coverStroke)
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}

// vertex returns the position of value v on axis i. Axis 0 points up and the
// remaining axes follow clockwise.
func vertex(cx, cy, radius float64, i int, v float64) point {
	angle := -math.Pi/2 + float64(i)*2*math.Pi/float64(len(axisLabels))
	r := radius * (v - ScaleMin) / (ScaleMax - ScaleMin)
	return point{
		X: cx + r*math.Cos(angle),
		Y: cy + r*math.Sin(angle),
	}
}

func anchor(i int) string {
	switch i {
	case 1:
		return "start"
	case 3:
		return "end"
	default:
		return "middle"
	}
}

func pointsAttr(pts []point) string {
	parts := make([]string, len(pts))
	for i, pt := range pts {
		parts[i] = fmt.Sprintf("%.2f,%.2f", pt.X, pt.Y)
	}
	return strings.Join(parts, " ")
}

func escape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return ""
	}
	return b.String()
}
