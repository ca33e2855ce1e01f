package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yks-coach/coach-hub/internal/domain/progress"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("COACH_API_URL", "http://127.0.0.1:1")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "coachctl dev\n", out)
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	_, _, err := execute(t, "migrate", "status")
	assert.ErrorIs(t, err, errNoDatabase)

	_, _, err = execute(t, "migrate", "sideways")
	assert.Error(t, err)
}

func TestReport_ValidatesBeforeFetching(t *testing.T) {
	_, _, err := execute(t, "report", "--id", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "student name is required")

	_, _, err = execute(t, "report", "--name", "Ayşe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "student id is required")
}

func TestResolveStudent_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "student.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"42","ad":"Ayse","soyad":"Yilmaz","bolum":"Sayısal","notlar":"Düzenli"}`), 0o600))

	f := &reportFlags{studentFile: path}
	f.student.Name = "Ayşe"
	f.student.Surname = "  "

	s, err := f.resolveStudent()
	require.NoError(t, err)
	assert.Equal(t, progress.Student{
		ID:      "42",
		Name:    "Ayşe",
		Surname: "Yilmaz",
		Program: "Sayısal",
		Notes:   "Düzenli",
	}, s)

	_, err = (&reportFlags{studentFile: filepath.Join(t.TempDir(), "missing.json")}).resolveStudent()
	assert.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path, err := writeReport(dir, "Ayşe_rapor.pdf", []byte("%PDF"))
	require.NoError(t, err)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(body))
}

func TestWriteReport_KeepsFileInsideDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := writeReport(dir, "../../kaçak_rapor.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.FileExists(t, path)
}
