package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// TokenManifest is the content of a token manifest file:
//
//	project = ["<policy id><asset name>", ...]
//	project-detail = [...]
//	project-script = [...]
type TokenManifest struct {
	Project       []string `toml:"project"`
	ProjectDetail []string `toml:"project-detail"`
	ProjectScript []string `toml:"project-script"`
}

// LoadTokenManifest parses the manifest at path. Unknown keys are rejected.
func LoadTokenManifest(path string) (*TokenManifest, error) {
	var m TokenManifest
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("failed to load token manifest %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("token manifest %q: unknown key %q", path, undecoded[0].String())
	}
	return &m, nil
}
