package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/filesearch/internal/backend"
	"github.com/Aman-CERP/filesearch/internal/config"
	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
)

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, string) (string, error) { return "", nil }

func TestOpen_Solr(t *testing.T) {
	cfg := config.NewConfig()

	a, err := Open(cfg, backend.Deps{})
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.Equal(t, "solr", a.Name())
}

func TestOpen_Bleve(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Backend.Engine = "BLEVE"

	a, err := Open(cfg, backend.Deps{Extractor: stubExtractor{}})
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.Equal(t, "bleve", a.Name())
	assert.NoError(t, a.Ping(context.Background()))
}

func TestOpen_UnknownEngine(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Backend.Engine = "elastic"

	_, err := Open(cfg, backend.Deps{})

	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeBackendUnknown, fserrors.GetCode(err))
	assert.True(t, fserrors.IsFatal(err))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"bleve", "solr"}, Names())
}
