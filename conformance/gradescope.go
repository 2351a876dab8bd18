package conformance

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type GradescopeTest struct {
	Name       string `json:"name"`
	MaxScore   int    `json:"max_score"`
	Score      int    `json:"score"`
	Output     string `json:"output"`
	Visibility string `json:"visibility"`
	Status     string `json:"status,omitempty"`
}

type GradescopeOutput struct {
	Score float64          `json:"score"`
	Tests []GradescopeTest `json:"tests"`
}

func CreateTestCase(name string, maxScore int, visibility string) GradescopeTest {
	if visibility == "" {
		visibility = "visible"
	}
	return GradescopeTest{
		Name:       name,
		MaxScore:   maxScore,
		Visibility: visibility,
	}
}

func (gt *GradescopeTest) SetStatus(success bool) {
	if success {
		gt.Status = "passed"
		gt.Score = gt.MaxScore
	} else {
		gt.Status = "failed"
		gt.Score = 0
	}
}

func (gt *GradescopeTest) OutputPrintLn(str string) {
	gt.Output += str + "\n"
}

func (gso *GradescopeOutput) Passed() int {
	n := 0
	for _, t := range gso.Tests {
		if t.Status == "passed" {
			n++
		}
	}
	return n
}

// Save writes the results as JSON, creating the directory if needed.
func (gso *GradescopeOutput) Save(path string) error {
	b, err := json.MarshalIndent(gso, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
