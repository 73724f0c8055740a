package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	runVersion(versionCmd, nil)

	output := out.String()
	assert.Contains(t, output, "Podscribe API")
	assert.Contains(t, output, "Version:")
	assert.Contains(t, output, "Go Version:")
}

func TestVersionCommandShort(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	require.NoError(t, versionCmd.Flags().Set("short", "true"))
	defer versionCmd.Flags().Set("short", "false")

	runVersion(versionCmd, nil)
	assert.Equal(t, "vdev\n", out.String())
}

func TestRootCommandHasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["version"])
}
