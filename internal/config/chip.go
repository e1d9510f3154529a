package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/einzel-data/focal.report/internal/units"
)

// ChipConfig holds server defaults for the lens chip geometry and query
// handling. Fields omitted from the JSON file fall back to the reference
// chip_v0 values via the Get* methods, so partial configs are safe.
//
// Nothing here is constructed at package load time; callers build chips
// explicitly from these defaults.
type ChipConfig struct {
	// Default chip geometry (metres)
	Spacings    []float64 `json:"spacings,omitempty"`
	Thicknesses []float64 `json:"thicknesses,omitempty"`
	Diameter    *float64  `json:"diameter,omitempty"`

	// Output units for focal lengths and offsets
	Units *string `json:"units,omitempty"`

	// Default and maximum sample counts for ray traces
	NumDatapoints    *int `json:"num_datapoints,omitempty"`
	MaxNumDatapoints *int `json:"max_num_datapoints,omitempty"`
}

// EmptyChipConfig returns a ChipConfig with all fields unset.
func EmptyChipConfig() *ChipConfig {
	return &ChipConfig{}
}

// LoadChipConfig loads a ChipConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size.
func LoadChipConfig(path string) (*ChipConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyChipConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are consistent.
func (c *ChipConfig) Validate() error {
	if len(c.Spacings) != len(c.Thicknesses) {
		return fmt.Errorf("spacings and thicknesses must have the same length, got %d and %d",
			len(c.Spacings), len(c.Thicknesses))
	}
	for i, d := range c.Spacings {
		if d <= 0 {
			return fmt.Errorf("spacings[%d] must be positive, got %g", i, d)
		}
	}
	if c.Diameter != nil && *c.Diameter <= 0 {
		return fmt.Errorf("diameter must be positive, got %g", *c.Diameter)
	}
	if c.Units != nil && !units.IsValid(*c.Units) {
		return fmt.Errorf("invalid units %q, valid values: %s", *c.Units, units.ValidUnitsString())
	}
	if c.NumDatapoints != nil && *c.NumDatapoints < 1 {
		return fmt.Errorf("num_datapoints must be at least 1, got %d", *c.NumDatapoints)
	}
	if c.MaxNumDatapoints != nil && *c.MaxNumDatapoints < 1 {
		return fmt.Errorf("max_num_datapoints must be at least 1, got %d", *c.MaxNumDatapoints)
	}
	return nil
}

// GetSpacings returns the configured gap lengths or the chip_v0 defaults.
func (c *ChipConfig) GetSpacings() []float64 {
	if len(c.Spacings) == 0 {
		return []float64{2e-3, 2e-3, 5e-7, 5e-7}
	}
	return append([]float64(nil), c.Spacings...)
}

// GetThicknesses returns the configured plate thicknesses or the chip_v0 defaults.
func (c *ChipConfig) GetThicknesses() []float64 {
	if len(c.Thicknesses) == 0 {
		return []float64{5e-8, 5e-8, 5e-8, 5e-8}
	}
	return append([]float64(nil), c.Thicknesses...)
}

// GetDiameter returns the configured bore diameter or the chip_v0 default.
func (c *ChipConfig) GetDiameter() float64 {
	if c.Diameter == nil {
		return 2.5e-7
	}
	return *c.Diameter
}

// GetUnits returns the configured output units or the default (metres).
func (c *ChipConfig) GetUnits() string {
	if c.Units == nil {
		return units.M
	}
	return *c.Units
}

// GetNumDatapoints returns the default trace sample count.
func (c *ChipConfig) GetNumDatapoints() int {
	if c.NumDatapoints == nil {
		return 10000
	}
	return *c.NumDatapoints
}

// GetMaxNumDatapoints returns the cap on trace sample counts.
func (c *ChipConfig) GetMaxNumDatapoints() int {
	if c.MaxNumDatapoints == nil {
		return 100000
	}
	return *c.MaxNumDatapoints
}
