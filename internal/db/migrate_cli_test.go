package db

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMigrateCLI(t *testing.T, in string) (*MigrateCLI, *bytes.Buffer) {
	t.Helper()
	database, err := OpenDB(filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	fsys, err := MigrationsFS()
	require.NoError(t, err)

	var out bytes.Buffer
	return &MigrateCLI{DB: database, FS: fsys, Out: &out, In: strings.NewReader(in)}, &out
}

func TestMigrateCLI_UpDownStatus(t *testing.T) {
	cli, out := newMigrateCLI(t, "")

	require.NoError(t, cli.Run("status", nil))
	assert.Contains(t, out.String(), "2 pending")

	out.Reset()
	require.NoError(t, cli.Run("up", nil))
	assert.Contains(t, out.String(), "version 2, dirty false")

	out.Reset()
	require.NoError(t, cli.Run("status", nil))
	assert.Contains(t, out.String(), "state:     current")

	out.Reset()
	require.NoError(t, cli.Run("down", nil))
	assert.Contains(t, out.String(), "version 1")

	out.Reset()
	require.NoError(t, cli.Run("version", []string{"2"}))
	assert.Contains(t, out.String(), "moved to version 2")
}

func TestMigrateCLI_Force(t *testing.T) {
	cli, out := newMigrateCLI(t, "no\n")
	require.NoError(t, cli.Run("force", []string{"1"}))
	assert.Contains(t, out.String(), "not forced")
	v, _, err := cli.DB.MigrateVersion(cli.FS)
	require.NoError(t, err)
	assert.Zero(t, v)

	cli.In = strings.NewReader("yes\n")
	require.NoError(t, cli.Run("force", []string{"1"}))
	v, _, err = cli.DB.MigrateVersion(cli.FS)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	cli.In = nil
	cli.Force = true
	require.NoError(t, cli.Run("force", []string{"2"}))
	v, _, err = cli.DB.MigrateVersion(cli.FS)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
}

func TestMigrateCLI_Usage(t *testing.T) {
	cli, out := newMigrateCLI(t, "")

	for _, tt := range []struct {
		action string
		args   []string
	}{
		{"sideways", nil},
		{"version", nil},
		{"version", []string{"two"}},
		{"force", []string{"-1"}},
	} {
		assert.ErrorIs(t, cli.Run(tt.action, tt.args), ErrMigrateUsage, "%s %v", tt.action, tt.args)
	}

	require.NoError(t, cli.Run("help", nil))
	for _, action := range migrateOrder {
		assert.Contains(t, out.String(), action)
	}
	assert.NotContains(t, out.String(), "baseline")
}

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmd.db")
	var out bytes.Buffer

	assert.ErrorIs(t, RunMigrateCommand(nil, path, &out, nil), ErrMigrateUsage)

	require.NoError(t, RunMigrateCommand([]string{"up"}, path, &out, nil))
	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"status"}, path, &out, nil))
	assert.Contains(t, out.String(), "applied:   2")
}
