package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Configuration struct {
	Version     string
	BuildDate   string
	Commit      string
	RootPath    string
	DebugAST    bool
	DebugTxtAST bool
	Project     Project
}

// Project is the TOML project file: host settings plus the targets and
// their compiled scripts.
type Project struct {
	LogLevel  string         `toml:"log_level"`
	LogFile   string         `toml:"log_file"`
	FrameRate int            `toml:"frame_rate"`
	MaxTicks  int            `toml:"max_ticks"`
	Turbo     bool           `toml:"turbo"`
	Store     StoreConfig    `toml:"store"`
	Stage     TargetConfig   `toml:"stage"`
	Sprites   []TargetConfig `toml:"sprite"`
}

type StoreConfig struct {
	Driver  string        `toml:"driver"`
	DSN     string        `toml:"dsn"`
	Timeout time.Duration `toml:"timeout"`
}

type TargetConfig struct {
	Name      string           `toml:"name"`
	X         float64          `toml:"x"`
	Y         float64          `toml:"y"`
	Variables []VariableConfig `toml:"variable"`
	Scripts   []ScriptConfig   `toml:"script"`
}

type VariableConfig struct {
	Name  string `toml:"name"`
	Type  string `toml:"type"`
	Value any    `toml:"value"`
	Items []any  `toml:"items"`
	Cloud bool   `toml:"cloud"`
}

type ScriptConfig struct {
	Hat    string            `toml:"hat"`
	Fields map[string]string `toml:"fields"`
	File   string            `toml:"file"`
	Source string            `toml:"source"`
}

const (
	DefaultFrameRate = 30
	DefaultHat       = "event_whenflagclicked"
)

// LoadConfig reads a project file. Script files are resolved relative to
// the project file and loaded into Source.
func LoadConfig(path string) (Project, error) {
	var p Project
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return p, fmt.Errorf("failed to read project %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return p, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if p.FrameRate <= 0 {
		p.FrameRate = DefaultFrameRate
	}

	dir := filepath.Dir(path)
	targets := append([]*TargetConfig{&p.Stage}, ptrs(p.Sprites)...)
	for _, target := range targets {
		for i := range target.Scripts {
			if err := loadScript(dir, target.Name, &target.Scripts[i]); err != nil {
				return p, err
			}
		}
	}
	return p, nil
}

func ptrs(ts []TargetConfig) []*TargetConfig {
	out := make([]*TargetConfig, len(ts))
	for i := range ts {
		out[i] = &ts[i]
	}
	return out
}

func loadScript(dir, target string, s *ScriptConfig) error {
	if s.Hat == "" {
		s.Hat = DefaultHat
	}
	if s.File != "" && s.Source != "" {
		return fmt.Errorf("script on %s sets both file and source", target)
	}
	if s.File == "" {
		if strings.TrimSpace(s.Source) == "" {
			return fmt.Errorf("script on %s has no file or source", target)
		}
		return nil
	}
	path := s.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not load script for %s: %w", target, err)
	}
	s.File = path
	s.Source = string(src)
	return nil
}
