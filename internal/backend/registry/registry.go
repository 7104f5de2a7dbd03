// Package registry resolves a backend selector to an adapter factory.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Aman-CERP/filesearch/internal/backend"
	"github.com/Aman-CERP/filesearch/internal/backend/bleve"
	"github.com/Aman-CERP/filesearch/internal/backend/solr"
	"github.com/Aman-CERP/filesearch/internal/config"
	"github.com/Aman-CERP/filesearch/internal/convert"
	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
)

// Factory builds an adapter from configuration.
type Factory func(cfg *config.Config, deps backend.Deps) (backend.Adapter, error)

// Backends maps selectors to factories. Explicit, no reflection.
var Backends = map[string]Factory{
	config.EngineSolr: func(cfg *config.Config, deps backend.Deps) (backend.Adapter, error) {
		s := cfg.Backend.Solr
		return solr.New(solr.Config{
			BaseURL:           s.BaseURL(),
			ConnectTimeout:    s.ConnectTimeout,
			Timeout:           s.Timeout,
			RequestsPerSecond: s.RequestsPerSecond,
		}, deps.Logger)
	},
	config.EngineBleve: func(cfg *config.Config, deps backend.Deps) (backend.Adapter, error) {
		ext := deps.Extractor
		if ext == nil {
			ext = convert.NewTextExtractor(cfg.Tools.PDFToText, cfg.Tools.Timeout)
		}
		return bleve.New(cfg.Backend.Bleve.Path, ext, deps.Logger)
	},
}

// Open builds the adapter selected by cfg.Backend.Engine.
func Open(cfg *config.Config, deps backend.Deps) (backend.Adapter, error) {
	engine := strings.ToLower(cfg.Backend.Engine)
	factory, ok := Backends[engine]
	if !ok {
		return nil, fserrors.New(fserrors.ErrCodeBackendUnknown,
			fmt.Sprintf("unknown backend %q", cfg.Backend.Engine), nil).
			WithSuggestion("Set backend.engine to one of: " + strings.Join(Names(), ", "))
	}

	adapter, err := factory(cfg, deps)
	if err != nil {
		return nil, err
	}
	if deps.Logger != nil {
		deps.Logger.Debug("backend_opened", "engine", engine)
	}
	return adapter, nil
}

// Names returns the registered selectors in order.
func Names() []string {
	names := make([]string, 0, len(Backends))
	for name := range Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
