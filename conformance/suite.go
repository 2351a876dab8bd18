// Package conformance runs suites of assembly programs against the emulator
// and reports their scores in the Gradescope results format.
package conformance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type TestCase struct {
	Name string `json:"name"`
	// Source is assembly text, SourcePath a file relative to the suite.
	Source     string `json:"source"`
	SourcePath string `json:"sourcePath"`
	Args       string `json:"args"`

	ExpectedOutput    *string           `json:"expectedOutput"`
	ExpectedRegisters map[string]uint32 `json:"expectedRegisters"`
	// ExpectFault passes the test only when the program dies on a fault.
	ExpectFault bool `json:"expectFault"`

	Points     int    `json:"points"`
	Visibility string `json:"visibility"`
	// TimeoutMs bounds the host time one program may take. 0 uses the suite default.
	TimeoutMs int `json:"timeoutMs"`
}

type Suite struct {
	Name      string     `json:"name"`
	TimeoutMs int        `json:"timeoutMs"`
	Tests     []TestCase `json:"tests"`
}

// LoadSuite reads a suite file and resolves each sourcePath against the
// suite's directory.
func LoadSuite(path string) (*Suite, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := new(Suite)
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range s.Tests {
		tc := &s.Tests[i]
		if tc.Name == "" {
			tc.Name = fmt.Sprintf("test %d", i+1)
		}
		if tc.Source != "" {
			continue
		}
		if tc.SourcePath == "" {
			return nil, fmt.Errorf("%s: %s has neither source nor sourcePath", path, tc.Name)
		}
		src, err := os.ReadFile(filepath.Join(dir, tc.SourcePath))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tc.Name, err)
		}
		tc.Source = string(src)
	}
	return s, nil
}
