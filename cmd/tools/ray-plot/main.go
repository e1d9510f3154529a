// Command ray-plot runs a one-off lens simulation from the command line:
// it prints the system focal length for a voltage configuration and renders
// the electron ray trace to a PNG. It replaces the interactive notebook-style
// workflow of poking at the simulation; nothing runs unless invoked.
//
// Example:
//
//	ray-plot -voltages=-1000,0,0,2500,0 -angle=0.001 -offset=5e-6 -energy=50 -out=plots
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/einzel-data/focal.report/internal/config"
	"github.com/einzel-data/focal.report/internal/httputil"
	"github.com/einzel-data/focal.report/internal/lens"
	"github.com/einzel-data/focal.report/internal/render"
)

var (
	configFile = flag.String("config", "", "Path to a chip defaults JSON file")
	voltagesCS = flag.String("voltages", "-1000,0,0,-1500,0", "Comma-separated voltages: base, then one per aperture, then the downstream neighbour")
	angle      = flag.Float64("angle", 0.001, "Electron release angle (rad)")
	offset     = flag.Float64("offset", 5e-6, "Electron release offset (m)")
	energy     = flag.Float64("energy", 50, "Electron release energy (eV)")
	numPoints  = flag.Int("points", 10000, "Number of trace samples")
	outDir     = flag.String("out", "plots", "Output directory for the ray PNG")
)

func parseVoltages(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	voltages := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid voltage %q: %w", p, err)
		}
		voltages[i] = v
	}
	return voltages, nil
}

func main() {
	flag.Parse()

	cfg := config.EmptyChipConfig()
	if *configFile != "" {
		loaded, err := config.LoadChipConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	voltages, err := parseVoltages(*voltagesCS)
	if err != nil {
		log.Fatalf("Failed to parse voltages: %v", err)
	}

	stack, err := lens.NewStack(cfg.GetSpacings(), cfg.GetThicknesses(), cfg.GetDiameter())
	if err != nil {
		log.Fatalf("Invalid chip geometry: %v", err)
	}

	focalLength, err := stack.SystemFocalLength(voltages)
	if err != nil {
		log.Fatalf("Failed to compute focal length: %v", err)
	}
	fmt.Printf("system focal length: %s m\n", httputil.FormatFloat(focalLength))

	tracer := lens.NewTracer(stack)
	res, err := tracer.TraceRay(*angle, *offset, *energy, voltages)
	if err != nil {
		log.Fatalf("Failed to trace ray: %v", err)
	}
	for _, d := range res.Diagnostics {
		fmt.Printf("warning: %s\n", d)
	}

	points := tracer.LinearTrace(res, *numPoints)
	img, err := render.RayPlotPNG(stack, points, voltages)
	if err != nil {
		log.Fatalf("Failed to render ray plot: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}
	outFile := filepath.Join(*outDir, fmt.Sprintf("ray_%s.png", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(outFile, img, 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", outFile, err)
	}
	fmt.Printf("wrote %s (%d samples)\n", outFile, len(points))
}
