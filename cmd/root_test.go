package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"sync", "score", "migrate", "serve", "account"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "glimora", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSyncCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range syncCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["account"])
	assert.True(t, names["org"])
}

func TestSyncCommands_RequireID(t *testing.T) {
	for _, c := range []struct {
		name string
		ann  map[string][]string
	}{
		{"account", syncAccountCmd.Flags().Lookup("id").Annotations},
		{"org", syncOrgCmd.Flags().Lookup("id").Annotations},
	} {
		require.NotNil(t, c.ann, c.name)
		assert.Contains(t, c.ann, cobra.BashCompOneRequiredFlag, c.name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestScoreCommand_Flags(t *testing.T) {
	flag := scoreCmd.Flags().Lookup("file")
	require.NotNil(t, flag, "score command should have --file flag")
	assert.Equal(t, "", flag.DefValue)
}

func TestAccountAddCommand_Flags(t *testing.T) {
	for _, name := range []string{"id", "org", "name", "linkedin-url"} {
		assert.NotNil(t, accountAddCmd.Flags().Lookup(name), "account add should have --%s flag", name)
	}
}
