// Package config loads and validates filesearch configuration.
//
// Configuration is layered: built-in defaults, then the user config
// (~/.config/filesearch/config.yaml), then the project file
// (.filesearch.yaml or .filesearch.yml), then FILESEARCH_* environment
// variables. The result is validated before use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
)

// Backend selectors.
const (
	EngineSolr  = "solr"
	EngineBleve = "bleve"
)

// Batch actions.
const (
	ActionIndexMissing = "indexmissing"
	ActionIndexAll     = "indexall"
	ActionReset        = "reset"
)

// DefaultLargeFileThreshold is the attachment size (8 MiB) at which page
// indexing is deferred to the task scheduler.
const DefaultLargeFileThreshold int64 = 8 << 20

// Config is the complete filesearch configuration.
type Config struct {
	// DataDir holds the task database and lock files.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	Backend  BackendConfig  `yaml:"backend" json:"backend"`
	Fields   FieldsConfig   `yaml:"fields" json:"fields"`
	Tools    ToolsConfig    `yaml:"tools" json:"tools"`
	Indexing IndexingConfig `yaml:"indexing" json:"indexing"`
	Records  RecordsConfig  `yaml:"records" json:"records"`
	Tasks    TasksConfig    `yaml:"tasks" json:"tasks"`
	Watch    WatchConfig    `yaml:"watch" json:"watch"`
	Server   ServerConfig   `yaml:"server" json:"server"`
}

// BackendConfig selects and configures the search backend.
type BackendConfig struct {
	// Engine is the adapter selector: "solr" or "bleve".
	Engine string      `yaml:"engine" json:"engine"`
	Solr   SolrConfig  `yaml:"solr" json:"solr"`
	Bleve  BleveConfig `yaml:"bleve" json:"bleve"`
}

// SolrConfig configures the Solr HTTP adapter.
type SolrConfig struct {
	Host           string        `yaml:"host" json:"host"`
	Port           int           `yaml:"port" json:"port"`
	Path           string        `yaml:"path" json:"path"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	// RequestsPerSecond caps outgoing requests. Zero means unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// BaseURL returns http://host:port/path/.
func (s SolrConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d/%s/", s.Host, s.Port, strings.Trim(s.Path, "/"))
}

// BleveConfig configures the local bleve adapter.
type BleveConfig struct {
	// Path of the on-disk index. Empty keeps the index in memory.
	Path string `yaml:"path" json:"path"`
}

// FieldsConfig names the record fields holding documents.
type FieldsConfig struct {
	FileField      string `yaml:"file_field" json:"file_field"`
	PageIndexField string `yaml:"pageindex_field" json:"pageindex_field"`
}

// ToolsConfig locates the external conversion tools.
type ToolsConfig struct {
	PDFSeparate string        `yaml:"pdfseparate" json:"pdfseparate"`
	PDFToText   string        `yaml:"pdftotext" json:"pdftotext"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// IndexingConfig controls how attachments are indexed.
type IndexingConfig struct {
	IndexPages         bool   `yaml:"index_pages" json:"index_pages"`
	LargeFileThreshold int64  `yaml:"large_file_threshold" json:"large_file_threshold"`
	InlineRecordLimit  int    `yaml:"inline_record_limit" json:"inline_record_limit"`
	MilestoneStep      int    `yaml:"milestone_step" json:"milestone_step"`
	PageMilestoneStep  int    `yaml:"page_milestone_step" json:"page_milestone_step"`
	ScratchDir         string `yaml:"scratch_dir" json:"scratch_dir"`
	LockDir            string `yaml:"lock_dir" json:"lock_dir"`
	Action             string `yaml:"action" json:"action"`
	// WrittenCacheSize bounds the set of units written since the last commit.
	WrittenCacheSize int `yaml:"written_cache_size" json:"written_cache_size"`
}

// RecordsConfig locates the record store.
type RecordsConfig struct {
	Root string `yaml:"root" json:"root"`
}

// TasksConfig configures the task scheduler.
type TasksConfig struct {
	DBPath        string        `yaml:"db_path" json:"db_path"`
	SliceDuration time.Duration `yaml:"slice_duration" json:"slice_duration"`
}

// WatchConfig configures the records watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

// ServerConfig configures the MCP server and logging.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config with all defaults applied.
func NewConfig() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Backend: BackendConfig{
			Engine: EngineSolr,
			Solr: SolrConfig{
				Host:           "localhost",
				Port:           8983,
				Path:           "solr",
				ConnectTimeout: 5 * time.Second,
				Timeout:        100 * time.Second,
			},
		},
		Fields: FieldsConfig{
			FileField:      "pdf_file",
			PageIndexField: "pdf_page_texts",
		},
		Tools: ToolsConfig{
			PDFSeparate: "/usr/bin/pdfseparate",
			PDFToText:   "/usr/bin/pdftotext",
			Timeout:     10 * time.Minute,
		},
		Indexing: IndexingConfig{
			LargeFileThreshold: DefaultLargeFileThreshold,
			InlineRecordLimit:  3,
			MilestoneStep:      3,
			PageMilestoneStep:  1,
			ScratchDir:         filepath.Join(os.TempDir(), "filesearch"),
			Action:             ActionIndexMissing,
			WrittenCacheSize:   4096,
		},
		Records: RecordsConfig{Root: "records"},
		Tasks:   TasksConfig{SliceDuration: 30 * time.Second},
		Watch:   WatchConfig{Debounce: 500 * time.Millisecond},
		Server:  ServerConfig{LogLevel: "info"},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "filesearch")
	}
	return filepath.Join(home, ".filesearch")
}

// LockDirPath returns the directory for unit lock files.
func (c *Config) LockDirPath() string {
	if c.Indexing.LockDir != "" {
		return c.Indexing.LockDir
	}
	return filepath.Join(c.DataDir, "locks")
}

// TaskDBPath returns the SQLite task database path.
func (c *Config) TaskDBPath() string {
	if c.Tasks.DBPath != "" {
		return c.Tasks.DBPath
	}
	return filepath.Join(c.DataDir, "tasks.db")
}

// MilestoneStepFor returns the checkpoint step for the given page mode.
// Per-page work is costlier per record, so it is checkpointed more often.
func (c *Config) MilestoneStepFor(indexPages bool) int {
	if indexPages {
		return c.Indexing.PageMilestoneStep
	}
	return c.Indexing.MilestoneStep
}

// GetUserConfigPath returns the user-level config file path.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "filesearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "filesearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "filesearch", "config.yaml")
}

// Load builds the configuration for a project directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	// Step 1: user config
	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, err
		}
	}

	// Step 2: project config (overrides user config)
	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	// Step 3: environment (highest precedence)
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile builds the configuration from an explicit file, skipping the user
// and project lookups. Environment overrides still apply.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromDir(dir string) error {
	for _, name := range []string{".filesearch.yaml", ".filesearch.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML decodes path on top of c; keys absent from the file keep their
// current values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fserrors.New(fserrors.ErrCodeConfigNotFound, fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fserrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("FILESEARCH_DATA_DIR", &c.DataDir)
	setString("FILESEARCH_ENGINE", &c.Backend.Engine)
	setString("FILESEARCH_SOLR_HOST", &c.Backend.Solr.Host)
	setString("FILESEARCH_SOLR_PATH", &c.Backend.Solr.Path)
	setString("FILESEARCH_BLEVE_PATH", &c.Backend.Bleve.Path)
	setString("FILESEARCH_PDFSEPARATE", &c.Tools.PDFSeparate)
	setString("FILESEARCH_PDFTOTEXT", &c.Tools.PDFToText)
	setString("FILESEARCH_RECORDS_ROOT", &c.Records.Root)
	setString("FILESEARCH_ACTION", &c.Indexing.Action)
	setString("FILESEARCH_LOG_LEVEL", &c.Server.LogLevel)

	if v := os.Getenv("FILESEARCH_SOLR_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Backend.Solr.Port = p
		}
	}
	if v := os.Getenv("FILESEARCH_INDEX_PAGES"); v != "" {
		c.Indexing.IndexPages = strings.EqualFold(v, "true") || v == "1"
	}
}

// Validate checks the configuration and reports every problem at once as a
// fatal ConfigError.
func (c *Config) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	validEngines := map[string]bool{EngineSolr: true, EngineBleve: true}
	if !validEngines[strings.ToLower(c.Backend.Engine)] {
		add("backend.engine must be 'solr' or 'bleve', got %q", c.Backend.Engine)
	}
	if strings.EqualFold(c.Backend.Engine, EngineSolr) {
		if c.Backend.Solr.Host == "" {
			add("backend.solr.host must not be empty")
		}
		if c.Backend.Solr.Port <= 0 || c.Backend.Solr.Port > 65535 {
			add("backend.solr.port must be between 1 and 65535, got %d", c.Backend.Solr.Port)
		}
		if c.Backend.Solr.ConnectTimeout <= 0 || c.Backend.Solr.Timeout <= 0 {
			add("backend.solr timeouts must be positive")
		}
		if c.Backend.Solr.RequestsPerSecond < 0 {
			add("backend.solr.requests_per_second must be non-negative")
		}
	}

	if c.Fields.FileField == "" {
		add("fields.file_field must not be empty")
	}

	validActions := map[string]bool{ActionIndexMissing: true, ActionIndexAll: true, ActionReset: true}
	if !validActions[c.Indexing.Action] {
		add("indexing.action must be 'indexmissing', 'indexall', or 'reset', got %q", c.Indexing.Action)
	}
	if c.Indexing.LargeFileThreshold <= 0 {
		add("indexing.large_file_threshold must be positive, got %d", c.Indexing.LargeFileThreshold)
	}
	if c.Indexing.InlineRecordLimit < 0 {
		add("indexing.inline_record_limit must be non-negative, got %d", c.Indexing.InlineRecordLimit)
	}
	if c.Indexing.MilestoneStep <= 0 || c.Indexing.PageMilestoneStep <= 0 {
		add("indexing milestone steps must be positive")
	}
	if c.Indexing.ScratchDir == "" {
		add("indexing.scratch_dir must not be empty")
	}
	if c.Tools.Timeout <= 0 {
		add("tools.timeout must be positive")
	}
	if c.Records.Root == "" {
		add("records.root must not be empty")
	}
	if c.Tasks.SliceDuration <= 0 {
		add("tasks.slice_duration must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		add("server.log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel)
	}

	if err := result.ErrorOrNil(); err != nil {
		return fserrors.ConfigError("invalid configuration", err).
			WithSuggestion("Fix the listed settings in .filesearch.yaml or the FILESEARCH_* environment")
	}
	return nil
}

// CheckTools verifies the external tools needed by the current settings are
// executable. pdfseparate is required for page indexing and pdftotext for the
// local backend.
func (c *Config) CheckTools() error {
	var result *multierror.Error
	check := func(name, path string) {
		if err := checkExecutable(path); err != nil {
			result = multierror.Append(result, fmt.Errorf("tools.%s: %w", name, err))
		}
	}

	if c.Indexing.IndexPages {
		check("pdfseparate", c.Tools.PDFSeparate)
	}
	if strings.EqualFold(c.Backend.Engine, EngineBleve) {
		check("pdftotext", c.Tools.PDFToText)
	}

	if err := result.ErrorOrNil(); err != nil {
		return fserrors.New(fserrors.ErrCodeToolMissing, "required conversion tools are unavailable", err).
			WithSuggestion("Install poppler-utils or point tools.pdfseparate / tools.pdftotext at the binaries")
	}
	return nil
}

func checkExecutable(path string) error {
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s is missing: %w", path, err)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
