package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Mode selects how a file is opened.
type Mode string

const (
	ModeRead   Mode = "r" // read-only, file must exist
	ModeWrite  Mode = "w" // create or truncate, write a fresh header
	ModeAppend Mode = "a" // read-write, file must exist
)

const DefaultCacheCapacity = 10240

var InvalidMode = errors.New("Unknown open mode")

// FileOptions configure a single sobfile instance.
// A CacheCapacity of zero or less disables the read cache entirely.
type FileOptions struct {
	Mode          Mode `yaml:"mode"`
	CacheCapacity int  `yaml:"cache_capacity"`
}

func DefaultFileOptions(mode Mode) FileOptions {
	return FileOptions{
		Mode:          mode,
		CacheCapacity: DefaultCacheCapacity,
	}
}

func (o FileOptions) Validate() error {
	switch o.Mode {
	case ModeRead, ModeWrite, ModeAppend:
		return nil
	}

	return errors.Wrapf(InvalidMode, "'%s'", o.Mode)
}

// Load reads options from a YAML file. Fields absent from the file keep
// their defaults; an explicit cache_capacity of 0 disables caching.
func Load(path string) (FileOptions, error) {
	opts := DefaultFileOptions(ModeRead)

	buf, err := os.ReadFile(path)

	if err != nil {
		return opts, errors.Wrap(err, "read config")
	}

	if err := yaml.Unmarshal(buf, &opts); err != nil {
		return opts, errors.Wrap(err, "parse config")
	}

	return opts, opts.Validate()
}
