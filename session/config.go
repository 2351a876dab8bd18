package session

import (
	"encoding/json"
	"fmt"
	"os"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/kernel"
)

const (
	ClockHost    = "host"
	ClockVirtual = "virtual"
)

// DefaultConfigPath is where the CLI looks for a config when none is given.
const DefaultConfigPath = "emulatorConfig.json"

type Config struct {
	Memory emulator.MemoryConfig `json:"memory"`
	Kernel kernel.Config         `json:"kernel"`
	Clock  string                `json:"clock"` // "host" or "virtual"

	MainPriority int `json:"mainPriority"`
	// MaxInstructions stops a run once this many instructions executed, 0 is unlimited.
	MaxInstructions uint64 `json:"maxInstructions"`

	DebugAddress   string `json:"debugAddress"`
	MonitorAddress string `json:"monitorAddress"`
	Logging        bool   `json:"logging"`
}

func DefaultConfig() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Memory.MainSize == 0 {
		c.Memory = emulator.DefaultMemoryConfig()
	}
	defaults := kernel.DefaultConfig()
	if c.Kernel.SliceLength <= 0 {
		c.Kernel.SliceLength = defaults.SliceLength
	}
	if c.Kernel.DefaultStackSize == 0 {
		c.Kernel.DefaultStackSize = defaults.DefaultStackSize
	}
	if c.Kernel.StackSize == 0 {
		c.Kernel.StackBase, c.Kernel.StackSize = defaults.StackBase, defaults.StackSize
	}
	if c.Clock == "" {
		c.Clock = ClockHost
	}
	if c.MainPriority == 0 {
		c.MainPriority = 0x20
	}
	if c.DebugAddress == "" {
		c.DebugAddress = ":2035"
	}
	if c.MonitorAddress == "" {
		c.MonitorAddress = ":2036"
	}
}

// LoadConfig reads a JSON config. Fields left out keep their defaults.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c := Config{}
	if err := json.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	c.applyDefaults()
	if c.Clock != ClockHost && c.Clock != ClockVirtual {
		return Config{}, fmt.Errorf("%s: unknown clock %q", path, c.Clock)
	}
	return c, nil
}
