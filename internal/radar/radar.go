// Package radar renders vegetation class distributions as radar (spider)
// charts, either as a chart.js configuration or as a standalone SVG.
package radar

import (
	"github.com/satfarm/farmcarbon/internal/carbon"
)

const (
	// ScaleMin and ScaleMax bound the radial axis, in percent.
	ScaleMin = 0.0
	ScaleMax = 100.0

	// StepSize is the spacing between radial gridlines.
	StepSize = 20.0
)

// Axis labels in the order of carbon.VegetationPercentages.Values.
var (
	axisLabels  = [...]string{"Bare", "Sparse", "Moderate", "Dense"}
	classLabels = [...]string{"Bare/Non-Veg", "Sparse Veg", "Moderate Veg", "Dense Veg"}
)

// Labels returns the short axis labels used by Config and SVG.
func Labels() []string {
	return append([]string(nil), axisLabels[:]...)
}

// ClassLabels returns the classifier class names used by Compare.
func ClassLabels() []string {
	return append([]string(nil), classLabels[:]...)
}

// Series colours.
const (
	coverFill   = "rgba(34,197,94,0.25)"
	coverStroke = "rgba(34,197,94,1)"
	prevFill    = "rgba(99,132,255,0.2)"
	prevStroke  = "rgba(99,132,255,1)"
	currFill    = "rgba(75,192,192,0.2)"
	currStroke  = "rgba(75,192,192,1)"
)

// Dataset is one filled series on the chart.
type Dataset struct {
	Label                string    `json:"label"`
	Data                 []float64 `json:"data"`
	BackgroundColor      string    `json:"backgroundColor"`
	BorderColor          string    `json:"borderColor"`
	PointBackgroundColor string    `json:"pointBackgroundColor"`
	BorderWidth          int       `json:"borderWidth,omitempty"`
	Fill                 bool      `json:"fill"`
}

// ChartData holds axis labels and series.
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Ticks configures the radial tick marks.
type Ticks struct {
	StepSize      float64 `json:"stepSize"`
	BackdropColor string  `json:"backdropColor"`
}

// Lines configures grid or angle line colour.
type Lines struct {
	Color string `json:"color"`
}

// RadialScale is the chart.js "r" scale.
type RadialScale struct {
	SuggestedMin float64 `json:"suggestedMin"`
	SuggestedMax float64 `json:"suggestedMax"`
	Ticks        Ticks   `json:"ticks"`
	Grid         Lines   `json:"grid"`
	AngleLines   Lines   `json:"angleLines"`
}

// Scales wraps the radial scale.
type Scales struct {
	R RadialScale `json:"r"`
}

// Legend controls legend display.
type Legend struct {
	Display  bool   `json:"display"`
	Position string `json:"position,omitempty"`
}

// Title is an optional chart title.
type Title struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

// Plugins holds legend and title options.
type Plugins struct {
	Legend Legend `json:"legend"`
	Title  *Title `json:"title,omitempty"`
}

// Options is the chart.js options block.
type Options struct {
	Responsive bool    `json:"responsive"`
	Scales     Scales  `json:"scales"`
	Plugins    Plugins `json:"plugins"`
}

// ChartConfig is a complete chart.js radar chart configuration.
type ChartConfig struct {
	Type    string    `json:"type"`
	Data    ChartData `json:"data"`
	Options Options   `json:"options"`
}

// Config returns a single-series radar chart of p with four axes
// (Bare, Sparse, Moderate, Dense) on a fixed 0..100 scale.
func Config(p carbon.VegetationPercentages) ChartConfig {
	return ChartConfig{
		Type: "radar",
		Data: ChartData{
			Labels: Labels(),
			Datasets: []Dataset{
				coverDataset(p),
			},
		},
		Options: defaultOptions(nil),
	}
}

// Compare returns a two-series radar chart of the previous and current
// month distributions, labelled with the classifier's class names.
func Compare(prev, curr carbon.VegetationPercentages) ChartConfig {
	return ChartConfig{
		Type: "radar",
		Data: ChartData{
			Labels: ClassLabels(),
			Datasets: []Dataset{
				{
					Label:                "Previous Month",
					Data:                 values(prev),
					BackgroundColor:      prevFill,
					BorderColor:          prevStroke,
					PointBackgroundColor: prevStroke,
					Fill:                 true,
				},
				{
					Label:                "Current Month",
					Data:                 values(curr),
					BackgroundColor:      currFill,
					BorderColor:          currStroke,
					PointBackgroundColor: currStroke,
					Fill:                 true,
				},
			},
		},
		Options: defaultOptions(&Title{Display: true, Text: "Vegetation Analytics by Month"}),
	}
}

func coverDataset(p carbon.VegetationPercentages) Dataset {
	return Dataset{
		Label:                "Cover %",
		Data:                 values(p),
		BackgroundColor:      coverFill,
		BorderColor:          coverStroke,
		PointBackgroundColor: coverStroke,
		BorderWidth:          2,
		Fill:                 true,
	}
}

func defaultOptions(title *Title) Options {
	legend := Legend{Display: true}
	if title != nil {
		legend.Position = "top"
	}
	return Options{
		Responsive: true,
		Scales: Scales{
			R: RadialScale{
				SuggestedMin: ScaleMin,
				SuggestedMax: ScaleMax,
				Ticks:        Ticks{StepSize: StepSize, BackdropColor: "transparent"},
				Grid:         Lines{Color: "rgba(0,0,0,0.15)"},
				AngleLines:   Lines{Color: "rgba(0,0,0,0.2)"},
			},
		},
		Plugins: Plugins{Legend: legend, Title: title},
	}
}

func values(p carbon.VegetationPercentages) []float64 {
	v := p.Values()
	return v[:]
}
