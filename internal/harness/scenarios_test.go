package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenariosDir holds the demo scenarios shared with the CLI.
const scenariosDir = "../../testdata/scenarios"

// TestDemoScenarios runs every demo scenario and compares its trace with the
// golden file of the same name.
func TestDemoScenarios(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{name: "login-success", file: "login_success.yaml"},
		{name: "login-wrong-password", file: "login_wrong_password.yaml"},
		{name: "login-lockout", file: "login_lockout.yaml"},
		{name: "logout", file: "logout.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join(scenariosDir, tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.name, scenario.Name)
			assert.NotEmpty(t, scenario.Description)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario should pass: errors=%v", result.Errors)
			assert.NotEmpty(t, result.Cycles)
		})
	}
}

func TestDemoScenarios_AllFilesCovered(t *testing.T) {
	files, err := filepath.Glob(filepath.Join(scenariosDir, "*.yaml"))
	require.NoError(t, err)
	assert.Len(t, files, 4)
}
