package radar

import (
	"bytes"
	"encoding/xml"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/satfarm/farmcarbon/internal/carbon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var demoCover = carbon.VegetationPercentages{Bare: 5, Sparse: 15, Moderate: 40, Dense: 40}

func TestConfig(t *testing.T) {
	cfg := Config(demoCover)

	assert.Equal(t, "radar", cfg.Type)
	assert.Equal(t, []string{"Bare", "Sparse", "Moderate", "Dense"}, cfg.Data.Labels)
	require.Len(t, cfg.Data.Datasets, 1)

	ds := cfg.Data.Datasets[0]
	assert.Equal(t, "Cover %", ds.Label)
	assert.Equal(t, []float64{5, 15, 40, 40}, ds.Data)
	assert.True(t, ds.Fill)

	r := cfg.Options.Scales.R
	assert.Equal(t, 0.0, r.SuggestedMin)
	assert.Equal(t, 100.0, r.SuggestedMax)
	assert.Equal(t, 20.0, r.Ticks.StepSize)
	assert.True(t, cfg.Options.Plugins.Legend.Display)
	assert.Nil(t, cfg.Options.Plugins.Title)
}

func TestConfig_LabelsAreCopied(t *testing.T) {
	cfg := Config(demoCover)
	cfg.Data.Labels[0] = "changed"

	assert.Equal(t, "Bare", Labels()[0])
}

func TestLabels_ReturnCopies(t *testing.T) {
	Labels()[0] = "changed"
	ClassLabels()[3] = "changed"

	assert.Equal(t, []string{"Bare", "Sparse", "Moderate", "Dense"}, Labels())
	assert.Equal(t, []string{"Bare/Non-Veg", "Sparse Veg", "Moderate Veg", "Dense Veg"}, ClassLabels())
}

func TestConfig_JSON(t *testing.T) {
	data, err := json.Marshal(Config(demoCover))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "radar", decoded["type"])
	scales := decoded["options"].(map[string]any)["scales"].(map[string]any)
	r := scales["r"].(map[string]any)
	assert.Equal(t, 100.0, r["suggestedMax"])
	assert.Equal(t, 20.0, r["ticks"].(map[string]any)["stepSize"])
}

func TestCompare(t *testing.T) {
	prev := carbon.VegetationPercentages{Bare: 20, Sparse: 30, Moderate: 40, Dense: 10}
	cfg := Compare(prev, demoCover)

	assert.Equal(t, ClassLabels(), cfg.Data.Labels)
	require.Len(t, cfg.Data.Datasets, 2)
	assert.Equal(t, "Previous Month", cfg.Data.Datasets[0].Label)
	assert.Equal(t, []float64{20, 30, 40, 10}, cfg.Data.Datasets[0].Data)
	assert.Equal(t, "Current Month", cfg.Data.Datasets[1].Label)
	assert.Equal(t, []float64{5, 15, 40, 40}, cfg.Data.Datasets[1].Data)
	require.NotNil(t, cfg.Options.Plugins.Title)
	assert.Equal(t, "top", cfg.Options.Plugins.Legend.Position)
}

func TestSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, demoCover, SVGOptions{Title: "Cover <2025-09>"}))

	out := buf.String()

	// Well-formed XML
	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
	}

	assert.True(t, strings.HasPrefix(out, "<svg "))
	assert.Contains(t, out, `width="420"`)
	assert.Equal(t, 6, strings.Count(out, "<polygon"), "five grid rings and one series")
	assert.Equal(t, 4, strings.Count(out, "<line "))
	assert.Equal(t, 4, strings.Count(out, `<circle class="point"`))
	for _, label := range Labels() {
		assert.Contains(t, out, ">"+label+"</text>")
	}
	for _, tick := range []string{">0<", ">20<", ">40<", ">60<", ">80<", ">100<"} {
		assert.Contains(t, out, tick)
	}
	assert.Contains(t, out, "Cover &lt;2025-09&gt;")
}

func TestSVG_ClampsOutOfRangeValues(t *testing.T) {
	var over, full bytes.Buffer
	require.NoError(t, SVG(&over, carbon.VegetationPercentages{Bare: 150, Sparse: -10}, SVGOptions{Size: 300}))
	require.NoError(t, SVG(&full, carbon.VegetationPercentages{Bare: 100, Sparse: 0}, SVGOptions{Size: 300}))

	assert.Equal(t, full.String(), over.String())
}

func TestSVG_SmallSizeUsesMinimum(t *testing.T) {
	var want bytes.Buffer
	require.NoError(t, SVG(&want, demoCover, SVGOptions{Size: minSize, Title: "Plot"}))
	assert.Contains(t, want.String(), `width="160" height="160"`)

	for _, size := range []int{1, 40, 72, minSize - 1} {
		var got bytes.Buffer
		require.NoError(t, SVG(&got, demoCover, SVGOptions{Size: size, Title: "Plot"}))
		assert.Equal(t, want.String(), got.String(), "size %d", size)
	}

	// The top vertex of the series stays above the centre
	cx, cy := float64(minSize)/2, titleHeight+(minSize-titleHeight)/2
	radius := (minSize-titleHeight)/2 - labelPadding - 8
	require.Greater(t, radius, 0.0)
	top := vertex(cx, cy, radius, 0, demoCover.Bare)
	assert.Less(t, top.Y, cy)
}

func TestVertex(t *testing.T) {
	tests := []struct {
		axis  int
		value float64
		want  point
	}{
		{0, 100, point{X: 100, Y: 0}},
		{1, 100, point{X: 200, Y: 100}},
		{2, 50, point{X: 100, Y: 150}},
		{3, 100, point{X: 0, Y: 100}},
		{2, 0, point{X: 100, Y: 100}},
	}

	for _, tt := range tests {
		got := vertex(100, 100, 100, tt.axis, tt.value)
		assert.InDelta(t, tt.want.X, got.X, 1e-9)
		assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
		assert.False(t, math.IsNaN(got.X))
	}
}
