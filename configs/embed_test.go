package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/filesearch/internal/config"
)

func TestProjectConfigTemplate_MatchesDefaults(t *testing.T) {
	// Given: the template written to disk
	path := filepath.Join(t.TempDir(), ".filesearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ProjectConfigTemplate), 0o644))

	// When: loading it
	cfg, err := config.LoadFile(path)

	// Then: it is valid and equal to the defaults it documents
	require.NoError(t, err)
	want := config.NewConfig()
	assert.Equal(t, want.Backend, cfg.Backend)
	assert.Equal(t, want.Fields, cfg.Fields)
	assert.Equal(t, want.Indexing, cfg.Indexing)
	assert.Equal(t, want.Records, cfg.Records)
}
