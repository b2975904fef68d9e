package main

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() {
		Version, GitCommit = origVersion, origCommit
	})

	Version = "1.2.3-test"
	GitCommit = "abc123"

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	require.Contains(t, out.String(), "Turnstile 1.2.3-test")
	require.Contains(t, out.String(), "Git Commit: abc123")
	require.Contains(t, out.String(), runtime.GOOS+"/"+runtime.GOARCH)
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	require.True(t, names["serve"])
	require.True(t, names["version"])
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}
