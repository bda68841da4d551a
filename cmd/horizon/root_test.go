package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCommand(t *testing.T, name string) *cobra.Command {
	t.Helper()
	for _, c := range getRootCmd().Commands() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("subcommand %q not found", name)
	return nil
}

func TestRootCommandStructure(t *testing.T) {
	cmd := getRootCmd()
	require.NotNil(t, cmd)

	for _, name := range []string{
		"init", "project", "ingest", "datasets", "roles", "materialize",
		"features", "train", "predict", "models", "jobs",
	} {
		findCommand(t, name)
	}

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "string", configFlag.Value.Type())
	assert.NotNil(t, cmd.PersistentFlags().Lookup("driver"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("db-file"))
}

func TestRootCommandHelp(t *testing.T) {
	cmd := getRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})
	require.NoError(t, cmd.Execute())

	help := buf.String()
	assert.Contains(t, help, "horizon")
	assert.Contains(t, help, "Available Commands")
	assert.Contains(t, help, "ingest")
}

func TestRolesCommandFlags(t *testing.T) {
	roles := findCommand(t, "roles")
	for _, flag := range []string{"key", "date", "target", "feature", "horizon"} {
		assert.NotNil(t, roles.Flags().Lookup(flag), flag)
	}
}

func TestMaterializeCommandFlags(t *testing.T) {
	mat := findCommand(t, "materialize")
	for _, flag := range []string{"sql", "sql-file", "draft", "from-target"} {
		assert.NotNil(t, mat.Flags().Lookup(flag), flag)
	}
}

func TestProjectDeleteHasForceFlag(t *testing.T) {
	project := findCommand(t, "project")
	var del *cobra.Command
	for _, c := range project.Commands() {
		if c.Name() == "delete" {
			del = c
		}
	}
	require.NotNil(t, del)
	force := del.Flags().Lookup("force")
	require.NotNil(t, force)
	assert.Equal(t, "bool", force.Value.Type())
}

func TestRootRejectsUnknownCommand(t *testing.T) {
	cmd := getRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetErr(buf)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"no-such-command"})
	assert.Error(t, cmd.Execute())
}
