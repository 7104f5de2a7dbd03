// Package solr implements the backend adapter for Apache Solr.
//
// Units are uploaded to the extracting request handler as multipart form
// data with literal field parameters; queries go to the select handler. All
// writes are sent with commit=false and become visible only after Commit.
package solr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Aman-CERP/filesearch/internal/backend"
	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/record"
	"github.com/Aman-CERP/filesearch/internal/search"
)

// Name is the registry selector of this adapter.
const Name = "solr"

// UploadField is the multipart field carrying the document.
const UploadField = "myfile"

const xmlContentType = "text/xml; charset=utf-8"

// Default timeouts.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultTimeout        = 100 * time.Second
)

// Config configures the adapter.
type Config struct {
	// BaseURL is http://host:port/path/, e.g. http://localhost:8983/solr/files/.
	BaseURL        string
	ConnectTimeout time.Duration
	// Timeout bounds each request end to end.
	Timeout time.Duration
	// RequestsPerSecond caps outgoing requests. Zero means unlimited.
	RequestsPerSecond float64
}

// Adapter talks to one Solr core over HTTP.
type Adapter struct {
	cfg       Config
	base      *url.URL
	client    *http.Client
	transport *http.Transport
	limiter   *rate.Limiter
	logger    *slog.Logger
}

var _ backend.Adapter = (*Adapter)(nil)

// New creates a Solr adapter. No request is made until first use.
func New(cfg Config, logger *slog.Logger) (*Adapter, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fserrors.ConfigError(fmt.Sprintf("invalid solr url %q", cfg.BaseURL), err)
	}

	// The total bound is applied per request through the context so that a
	// caller's own deadline still wins when it is shorter.
	transport := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}

	a := &Adapter{
		cfg:       cfg,
		base:      base,
		client:    &http.Client{Transport: transport},
		transport: transport,
		logger:    logger,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return a, nil
}

// Name implements backend.Adapter.
func (a *Adapter) Name() string {
	return Name
}

// Index implements backend.Adapter.
func (a *Adapter) Index(ctx context.Context, rec record.Record, path string, opts backend.IndexOptions) error {
	key := opts.Key(rec.ID, path)
	name := opts.Name(path)

	f, err := os.Open(path)
	if err != nil {
		return fserrors.New(fserrors.ErrCodeFileNotFound, fmt.Sprintf("open %s", path), err)
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("read %s: %w", path, err)
	}
	head = head[:n]
	mimeType := http.DetectContentType(head)

	body, contentType := multipartBody(io.MultiReader(bytes.NewReader(head), f), filepath.Base(path), mimeType)
	// unblocks the writer when the request is never sent
	defer func() { _ = body.Close() }()
	params := extractParams(rec.ID, key.String(), name, opts.Fields)

	if _, err := a.do(ctx, http.MethodPost, "update/extract/", params, body, contentType); err != nil {
		return err
	}

	a.logger.Info("unit_indexed",
		slog.String("backend", Name),
		slog.String("key", key.String()),
		slog.String("name", name),
		slog.Int64("record_id", rec.ID))
	return nil
}

// multipartBody streams r as the single multipart file field.
// Closing the returned reader stops the writer goroutine.
func multipartBody(r io.Reader, filename, mimeType string) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, UploadField, filename))
		header.Set("Content-Type", mimeType)

		part, err := mw.CreatePart(header)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

// IsIndexed implements backend.Adapter.
func (a *Adapter) IsIndexed(ctx context.Context, rec record.Record, att record.Attachment) bool {
	key := search.NewUnitKey(rec.ID, att.Name)
	result, err := a.Query(ctx, backend.IndexedQuery(key))
	if err != nil {
		a.logger.Warn("indexed_check_failed",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
		return false
	}
	return backend.IndexedIn(result, rec.ID)
}

// Query implements backend.Adapter.
func (a *Adapter) Query(ctx context.Context, q search.Query) (*search.Result, error) {
	params, err := BuildParams(q)
	if err != nil {
		return nil, err
	}

	body, err := a.do(ctx, http.MethodGet, "select", params, nil, "")
	if err != nil {
		return nil, err
	}

	resp, err := ParseResponse(body)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("solr_query",
		slog.String("q", q.Text),
		slog.Int64("num_found", resp.NumFound),
		slog.Int("docs", len(resp.Docs)))

	return search.Reconcile(resp, a.logger), nil
}

// Commit implements backend.Adapter.
func (a *Adapter) Commit(ctx context.Context) error {
	params := url.Values{"commit": {"true"}, "wt": {"json"}}
	_, err := a.do(ctx, http.MethodPost, "update", params,
		strings.NewReader("<commit/>"), xmlContentType)
	if err == nil {
		a.logger.Info("backend_committed", slog.String("backend", Name))
	}
	return err
}

// Clear implements backend.Adapter.
func (a *Adapter) Clear(ctx context.Context) error {
	params := url.Values{"commit": {"true"}, "wt": {"json"}}
	_, err := a.do(ctx, http.MethodPost, "update", params,
		strings.NewReader("<delete><query>*:*</query></delete>"), xmlContentType)
	if err == nil {
		a.logger.Info("backend_cleared", slog.String("backend", Name))
	}
	return err
}

// Ping implements backend.Adapter.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.do(ctx, http.MethodGet, "admin/ping", url.Values{"wt": {"json"}}, nil, "")
	return err
}

// Close implements backend.Adapter.
func (a *Adapter) Close() error {
	a.transport.CloseIdleConnections()
	return nil
}

// do sends one request and returns the body of a successful reply.
func (a *Adapter) do(ctx context.Context, method, path string, params url.Values, body io.Reader, contentType string) ([]byte, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fserrors.NetworkError("solr request not sent", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	u := a.base.JoinPath(path)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fserrors.InternalError("build solr request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	a.logger.Debug("solr_request", slog.String("method", method), slog.String("url", u.String()))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fserrors.NetworkError("solr request failed", err).
			WithDetail("url", u.Redacted()).
			WithSuggestion("Check that Solr is running and backend.solr.host/port/path are correct")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fserrors.NetworkError("read solr response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fserrors.StatusError(resp.StatusCode, excerpt(data)).WithDetail("url", u.Redacted())
	}

	// Update handlers report failures inside a 200 reply as well.
	if path != "select" {
		if _, err := decodeEnvelope(data); err != nil {
			return nil, err
		}
	}
	return data, nil
}
