package cli

import (
	"os"
	"path/filepath"
)

// Paths locates the audioseg directories under the user's home.
type Paths struct {
	HomeDir string
}

// NewPaths returns Paths for the current user.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns ~/.audioseg.
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns ~/.audioseg/config.yaml.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// DataDir returns ~/.audioseg/data.
func (p *Paths) DataDir() string {
	return filepath.Join(p.BaseDir(), "data")
}

// ManifestDir returns the default manifest directory.
func (p *Paths) ManifestDir() string {
	return filepath.Join(p.DataDir(), "manifest")
}

// SegmentDir returns the default root of the local segment store.
func (p *Paths) SegmentDir() string {
	return filepath.Join(p.DataDir(), "segments")
}

// Ensure creates dir and its parents.
func Ensure(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
