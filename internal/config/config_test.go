package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
)

// isolate points the user config lookup at an empty directory so the
// developer's own config never leaks into tests.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, EngineSolr, cfg.Backend.Engine)
	assert.Equal(t, "localhost", cfg.Backend.Solr.Host)
	assert.Equal(t, 8983, cfg.Backend.Solr.Port)
	assert.Equal(t, "solr", cfg.Backend.Solr.Path)
	assert.Equal(t, 5*time.Second, cfg.Backend.Solr.ConnectTimeout)
	assert.Equal(t, 100*time.Second, cfg.Backend.Solr.Timeout)

	assert.Equal(t, "pdf_file", cfg.Fields.FileField)
	assert.Equal(t, "pdf_page_texts", cfg.Fields.PageIndexField)
	assert.Equal(t, "/usr/bin/pdfseparate", cfg.Tools.PDFSeparate)
	assert.Equal(t, "/usr/bin/pdftotext", cfg.Tools.PDFToText)

	assert.False(t, cfg.Indexing.IndexPages)
	assert.Equal(t, int64(8388608), cfg.Indexing.LargeFileThreshold)
	assert.Equal(t, 3, cfg.Indexing.InlineRecordLimit)
	assert.Equal(t, ActionIndexMissing, cfg.Indexing.Action)

	require.NoError(t, cfg.Validate())
}

func TestConfig_MilestoneStepFor(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 3, cfg.MilestoneStepFor(false))
	assert.Equal(t, 1, cfg.MilestoneStepFor(true))
}

func TestSolrConfig_BaseURL(t *testing.T) {
	s := SolrConfig{Host: "search", Port: 8984, Path: "/solr/files/"}

	assert.Equal(t, "http://search:8984/solr/files/", s.BaseURL())
}

func TestConfig_DerivedPaths(t *testing.T) {
	cfg := NewConfig()
	cfg.DataDir = "/var/lib/filesearch"

	assert.Equal(t, "/var/lib/filesearch/locks", cfg.LockDirPath())
	assert.Equal(t, "/var/lib/filesearch/tasks.db", cfg.TaskDBPath())

	cfg.Indexing.LockDir = "/run/fs-locks"
	cfg.Tasks.DBPath = "/tmp/t.db"
	assert.Equal(t, "/run/fs-locks", cfg.LockDirPath())
	assert.Equal(t, "/tmp/t.db", cfg.TaskDBPath())
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	yaml := `
backend:
  engine: bleve
  solr:
    port: 9000
indexing:
  index_pages: true
  action: indexall
tasks:
  slice_duration: 2m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".filesearch.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, EngineBleve, cfg.Backend.Engine)
	assert.Equal(t, 9000, cfg.Backend.Solr.Port)
	assert.Equal(t, "localhost", cfg.Backend.Solr.Host, "unset keys keep defaults")
	assert.True(t, cfg.Indexing.IndexPages)
	assert.Equal(t, ActionIndexAll, cfg.Indexing.Action)
	assert.Equal(t, 2*time.Minute, cfg.Tasks.SliceDuration)
}

func TestLoad_UserConfigThenProjectThenEnv(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "filesearch"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "filesearch", "config.yaml"),
		[]byte("backend:\n  solr:\n    host: user-host\n    path: user-path\n"), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".filesearch.yml"),
		[]byte("backend:\n  solr:\n    path: project-path\n"), 0o644))

	t.Setenv("FILESEARCH_SOLR_PORT", "8999")
	t.Setenv("FILESEARCH_INDEX_PAGES", "1")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "user-host", cfg.Backend.Solr.Host)
	assert.Equal(t, "project-path", cfg.Backend.Solr.Path)
	assert.Equal(t, 8999, cfg.Backend.Solr.Port)
	assert.True(t, cfg.Indexing.IndexPages)
}

func TestLoad_MalformedYAMLIsConfigError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".filesearch.yaml"), []byte("backend: [unclosed"), 0o644))

	_, err := Load(dir)

	require.Error(t, err)
	assert.True(t, fserrors.IsFatal(err))
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeConfigNotFound, fserrors.GetCode(err))
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := NewConfig()
	cfg.Backend.Engine = "elastic"
	cfg.Indexing.Action = "reindex"
	cfg.Indexing.MilestoneStep = 0
	cfg.Server.LogLevel = "loud"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeConfigInvalid, fserrors.GetCode(err))
	assert.True(t, fserrors.IsFatal(err))
	msg := err.(*fserrors.FSError).Cause.Error()
	assert.Contains(t, msg, "backend.engine")
	assert.Contains(t, msg, "indexing.action")
	assert.Contains(t, msg, "milestone steps")
	assert.Contains(t, msg, "server.log_level")
}

func TestValidate_SolrPort(t *testing.T) {
	cfg := NewConfig()
	cfg.Backend.Solr.Port = 0
	require.Error(t, cfg.Validate())

	cfg.Backend.Engine = EngineBleve
	assert.NoError(t, cfg.Validate(), "solr settings are ignored for bleve")
}

func TestCheckTools(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "pdfseparate")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))
	plain := filepath.Join(dir, "pdftotext")
	require.NoError(t, os.WriteFile(plain, []byte("data"), 0o644))

	cfg := NewConfig()
	cfg.Tools.PDFSeparate = exe
	cfg.Tools.PDFToText = plain

	// Whole-document indexing on Solr needs no tools
	assert.NoError(t, cfg.CheckTools())

	cfg.Indexing.IndexPages = true
	assert.NoError(t, cfg.CheckTools())

	cfg.Backend.Engine = EngineBleve
	err := cfg.CheckTools()
	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeToolMissing, fserrors.GetCode(err))
	assert.True(t, fserrors.IsFatal(err))
	assert.Contains(t, err.(*fserrors.FSError).Cause.Error(), "not executable")
}

func TestWriteYAML_RoundTripsThroughLoadFile(t *testing.T) {
	cfg := NewConfig()
	cfg.Backend.Engine = EngineBleve
	cfg.Records.Root = "/srv/records"

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, EngineBleve, loaded.Backend.Engine)
	assert.Equal(t, "/srv/records", loaded.Records.Root)
	assert.Equal(t, cfg.Tools.Timeout, loaded.Tools.Timeout)
}
