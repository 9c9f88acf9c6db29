package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"library-tracker/library"
)

func runCmd(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestCommandsShareTheStore(t *testing.T) {
	t.Setenv("LIBRARY_LOG_FILE", "")
	dir := t.TempDir()
	db := filepath.Join(dir, "library.db")

	runCmd(t, strings.Join([]string{
		"1", "9780441172719", "Dune", "Frank Herbert", "Ace", "1965", "3",
		"1", "9780553293357", "Foundation", "Isaac Asimov", "Spectra", "1951", "1",
		"8",
	}, "\n")+"\n", "--db", db)

	out := runCmd(t, "", "search", "--db", db, "asimov")
	assert.Contains(t, out, "Found 1 book(s) matching 'asimov'")
	assert.Contains(t, out, "Foundation")

	out = runCmd(t, "", "stats", "--db", db, "--yaml")
	var stats library.Stats
	require.NoError(t, yaml.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.UniqueTitles)
	assert.Equal(t, 4, stats.TotalCopies)
	assert.Equal(t, 4, stats.AvailableCopies)

	out = runCmd(t, "", "stats", "--db", db)
	assert.Contains(t, out, "Total books in inventory:")
}

func TestMemberActivation(t *testing.T) {
	t.Setenv("LIBRARY_LOG_FILE", "")
	t.Setenv("LIBRARY_MEMBERS_ID_SCHEME", "sequential")
	db := filepath.Join(t.TempDir(), "library.db")

	runCmd(t, strings.Join([]string{
		"1", "9780441172719", "Dune", "Frank Herbert", "Ace", "1965", "1",
		"2", "Paul Atreides", "paul@arrakis.example", "", "",
		"8",
	}, "\n")+"\n", "--db", db)

	out := runCmd(t, "", "member", "deactivate", "MEM00001", "--db", db)
	assert.Contains(t, out, "Member MEM00001 deactivated")

	out = runCmd(t, "3\nMEM00001\n9780441172719\n7\nMEM00001\n8\n", "--db", db)
	assert.Contains(t, out, "Error: Member is not active")
	assert.Contains(t, out, "Paul Atreides (MEM00001) - inactive")

	out = runCmd(t, "", "member", "activate", "MEM00001", "--db", db)
	assert.Contains(t, out, "Member MEM00001 activated")

	out = runCmd(t, "3\nMEM00001\n9780441172719\n8\n", "--db", db)
	assert.Contains(t, out, "Book 'Dune' borrowed successfully")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"member", "deactivate", "MEM99999", "--db", db})
	err := cmd.Execute()
	assert.ErrorIs(t, err, library.ErrMemberNotFound)
}

func TestCommandRejectsUnknownDriver(t *testing.T) {
	t.Setenv("LIBRARY_LOG_FILE", "")
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"stats", "--driver", "postgres"})
	assert.ErrorContains(t, cmd.Execute(), "unknown storage driver")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(strings.NewReader("")))

	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))
}
