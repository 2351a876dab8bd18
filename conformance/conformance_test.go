package conformance_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/conformance"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/session"
)

const hello = `
.data
msg: .ascii "hello"
.text
main:
	li $s0, 0x55
	li $a0, 1
	la $a1, msg
	jal sceIoWrite
	li $a2, 5
	jal sceKernelExitThread
	li $a0, 0
`

const suiteJSON = `{
	"name": "basics",
	"tests": [
		{"name": "prints", "sourcePath": "hello.s", "expectedOutput": "hello", "points": 2},
		{"name": "registers", "sourcePath": "hello.s", "expectedRegisters": {"s0": 85, "a0": 0}, "points": 3},
		{"name": "wrong output", "sourcePath": "hello.s", "expectedOutput": "goodbye", "points": 1},
		{"name": "faults", "source": "main:\n\tli $t0, 0\n\tlw $t1, 0($t0)\n", "expectFault": true, "points": 1, "visibility": "hidden"},
		{"name": "unexpected fault", "source": "main:\n\tli $t0, 0\n\tlw $t1, 0($t0)\n", "points": 1},
		{"name": "spins", "source": "main:\n\tb main\n\tnop\n", "timeoutMs": 200, "points": 1},
		{"name": "does not assemble", "source": "main:\n\tbogus\n", "points": 1}
	]
}`

func loadSuite(t *testing.T) *conformance.Suite {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.s"), []byte(hello), 0o644))
	path := filepath.Join(dir, "suite.json")
	require.NoError(t, os.WriteFile(path, []byte(suiteJSON), 0o644))
	suite, err := conformance.LoadSuite(path)
	require.NoError(t, err)
	return suite
}

func TestLoadSuiteResolvesSources(t *testing.T) {
	suite := loadSuite(t)
	require.Len(t, suite.Tests, 7)
	assert.Equal(t, hello, suite.Tests[0].Source)

	_, err := conformance.LoadSuite(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRunSuite(t *testing.T) {
	suite := loadSuite(t)
	runner := conformance.NewRunner(session.DefaultConfig())
	runner.Parallel = 2
	report := runner.Run(context.Background(), suite)

	status := map[string]string{}
	for _, tc := range report.Tests {
		status[tc.Name] = tc.Status
	}
	assert.Equal(t, map[string]string{
		"prints":            "passed",
		"registers":         "passed",
		"wrong output":      "failed",
		"faults":            "passed",
		"unexpected fault":  "failed",
		"spins":             "failed",
		"does not assemble": "failed",
	}, status)
	assert.Equal(t, float64(6), report.Score)
	assert.Equal(t, 3, report.Passed())

	assert.Equal(t, "hidden", report.Tests[3].Visibility)
	assert.Contains(t, report.Tests[2].Output, "Expected output:\ngoodbye")
	assert.Contains(t, report.Tests[4].Output, "Program faulted")
	assert.Contains(t, report.Tests[5].Output, "did not finish")
}

func TestSaveReport(t *testing.T) {
	out := &conformance.GradescopeOutput{}
	tc := conformance.CreateTestCase("one", 4, "")
	tc.SetStatus(true)
	out.Tests = append(out.Tests, tc)
	out.Score = 4

	path := filepath.Join(t.TempDir(), "results", "results.json")
	require.NoError(t, out.Save(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	decoded := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	tests := decoded["tests"].([]interface{})
	first := tests[0].(map[string]interface{})
	assert.Equal(t, float64(4), first["score"])
	assert.Equal(t, float64(4), first["max_score"])
	assert.Equal(t, "visible", first["visibility"])
	assert.Equal(t, "passed", first["status"])
}
