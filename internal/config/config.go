// Package config loads the optional .sysycc.yaml project file and merges
// it with command-line flags into the Config the rest of the pipeline
// reads from. CLI flags always win when both a file value and a flag
// value are present; the file only ever supplies a default.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rrvm-project/sysycc/internal/errors"
	"github.com/rrvm-project/sysycc/internal/regalloc"
)

const FileName = ".sysycc.yaml"

// File is the on-disk shape of .sysycc.yaml. Every field is optional --
// an absent field simply leaves the corresponding default untouched.
type File struct {
	OptLevel              *int     `yaml:"opt_level"`
	ConstSpillWeightRatio *float64 `yaml:"constant_spill_weight_ratio"`
}

// Load reads dir's .sysycc.yaml, if one exists. A missing file is not an
// error -- it returns a zero File, leaving every default in place.
func Load(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "reading "+FileName)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing "+FileName)
	}
	return &f, nil
}

// Config is the fully resolved configuration the rest of the pipeline
// consumes: a project file's defaults overridden by whatever flags the
// command line actually supplied.
type Config struct {
	OptLevel              int
	ConstSpillWeightRatio float64
	OutputPath            string // "" means stdout
}

// Flags carries the command-line flag values cmd/sysycc parsed off
// os.Args. A nil OptLevel or ConstSpillWeightRatio means the flag was not
// given, so the file's value (or the hard default) applies instead.
type Flags struct {
	OptLevel              *int
	ConstSpillWeightRatio *float64
	OutputPath            string
}

// Resolve merges an optional project file with the parsed command-line
// flags, flags taking precedence over the file, and the file taking
// precedence over the hard-coded defaults.
func Resolve(file *File, flags Flags) *Config {
	cfg := &Config{
		OptLevel:              0,
		ConstSpillWeightRatio: regalloc.ConstSpillWeightRatio,
		OutputPath:            flags.OutputPath,
	}
	if file.OptLevel != nil {
		cfg.OptLevel = *file.OptLevel
	}
	if file.ConstSpillWeightRatio != nil {
		cfg.ConstSpillWeightRatio = *file.ConstSpillWeightRatio
	}
	if flags.OptLevel != nil {
		cfg.OptLevel = *flags.OptLevel
	}
	if flags.ConstSpillWeightRatio != nil {
		cfg.ConstSpillWeightRatio = *flags.ConstSpillWeightRatio
	}
	return cfg
}

// Apply pushes the resolved register-allocation tuning knob into
// internal/regalloc's package-level default, so Allocate picks it up
// without every caller threading a Config through the allocator API.
func (c *Config) Apply() {
	regalloc.ConstSpillWeightRatio = c.ConstSpillWeightRatio
}
