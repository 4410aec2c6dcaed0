// Command farmcarbon estimates one month of provisional carbon credits from a
// vegetation class distribution.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/satfarm/farmcarbon/internal/analysis"
	"github.com/satfarm/farmcarbon/internal/carbon"
	"github.com/satfarm/farmcarbon/internal/config"
	"github.com/satfarm/farmcarbon/internal/radar"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("farmcarbon", flag.ContinueOnError)
	fs.SetOutput(stderr)

	in := carbon.MonthlyCarbonInput{}
	fs.Float64Var(&in.AreaHa, "area", 2.0, "Analysed area in hectares")
	fs.StringVar(&in.Month, "month", "2025-09", "Month label echoed in the result")
	fs.Float64Var(&in.Percentages.Bare, "bare", 5, "Bare/non-vegetated cover (%)")
	fs.Float64Var(&in.Percentages.Sparse, "sparse", 15, "Sparse vegetation cover (%)")
	fs.Float64Var(&in.Percentages.Moderate, "moderate", 40, "Moderate vegetation cover (%)")
	fs.Float64Var(&in.Percentages.Dense, "dense", 40, "Dense vegetation cover (%)")
	fs.Float64Var(&in.PrevMonthStockTCPerHa, "baseline", 1.60, "Previous month carbon stock (t C/ha)")

	k := fs.Float64("k", carbon.DefaultK, "Biomass coefficient (kg/ha per NDVI unit)")
	cf := fs.Float64("cf", carbon.DefaultCF, "Carbon fraction of dry biomass")
	rootRatio := fs.Float64("root-ratio", carbon.DefaultRootRatio, "Below-ground to above-ground ratio")
	buffer := fs.Float64("buffer", carbon.DefaultBufferRate, "Buffer pool rate")
	uncertainty := fs.Float64("uncertainty", carbon.DefaultUncertainty, "Uncertainty discount rate")
	calibration := fs.String("calibration", "", "YAML calibration file; explicit coefficient flags take precedence")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	radarPath := fs.String("radar", "", "Write a radar chart of the distribution to this SVG file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	coeffs, err := config.LoadCalibration(*calibration)
	if err != nil {
		fmt.Fprintf(stderr, "[farmcarbon] Error: %v\n", err)
		return 1
	}

	// Flags given on the command line override the calibration file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "k":
			coeffs.K = *k
		case "cf":
			coeffs.CF = *cf
		case "root-ratio":
			coeffs.RootRatio = *rootRatio
		case "buffer":
			coeffs.BufferRate = *buffer
		case "uncertainty":
			coeffs.Uncertainty = *uncertainty
		}
	})
	coeffs.Apply(&in)

	if err := analysis.ValidateInput(in); err != nil {
		fmt.Fprintf(stderr, "[farmcarbon] Error: %v\n", err)
		return 1
	}

	result, err := carbon.EstimateMonthlyCarbon(in)
	if err != nil {
		fmt.Fprintf(stderr, "[farmcarbon] Error: %v\n", err)
		return 1
	}

	if *radarPath != "" {
		if err := writeRadar(*radarPath, in); err != nil {
			fmt.Fprintf(stderr, "[farmcarbon] Error: %v\n", err)
			return 1
		}
	}

	if *asJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "[farmcarbon] Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(out))
		return 0
	}

	fmt.Fprint(stdout, carbon.Describe(result))
	return 0
}

func writeRadar(path string, in carbon.MonthlyCarbonInput) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return radar.SVG(f, in.Percentages, radar.SVGOptions{Title: "Vegetation cover " + in.Month})
}
