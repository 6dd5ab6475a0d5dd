package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const (
	explorerNamespace = "uk.ac.ox.softeng.maurodatamapper.plugins.explorer.querybuilder"

	DefaultPrimitiveTypeProfileName = "QueryBuilderPrimitiveTypeProfileProviderService"
	DefaultCoreTableProfileName     = "QueryBuilderCoreTableProfileProviderService"
	DefaultQueryProfileName         = "QueryBuilderQueryProfileProviderService"

	DefaultErrorMessage = "There was a problem submitting the data specification. Please try again or contact your administrator."
)

// DefaultSteps is the submission pipeline order used when none is configured.
var DefaultSteps = []string{
	"CreateDataRequest",
	"GenerateSqlFile",
	"AttachSqlFile",
	"GeneratePdfFile",
	"AttachPdfFile",
	"SubmitDataRequest",
}

// ErrInvalid wraps validation failures of a reloaded config.
var ErrInvalid = errors.New("config invalid")

// Loader reads a YAML config file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *ExplorerConfig
	onChange []func(*ExplorerConfig)
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Config returns the current (latest) configuration.
func (l *Loader) Config() *ExplorerConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*ExplorerConfig)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file changes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					cfg, err := l.loadValid()
					if err != nil {
						slog.Warn("config reload failed, keeping previous config", "path", l.path, "err", err)
						continue
					}
					l.publish(cfg)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the config file. A config that
// fails to parse or validate is not published; validation failures wrap
// ErrInvalid.
func (l *Loader) Reload() (*ExplorerConfig, error) {
	cfg, err := l.loadValid()
	if err != nil {
		return nil, err
	}
	l.publish(cfg)
	return cfg, nil
}

func (l *Loader) loadValid() (*ExplorerConfig, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

func (l *Loader) publish(cfg *ExplorerConfig) {
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*ExplorerConfig), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
}

func (l *Loader) load() (*ExplorerConfig, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (*ExplorerConfig, error) {
	var cfg ExplorerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func ApplyDefaults(cfg *ExplorerConfig) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Catalogue.TimeoutMs == 0 {
		cfg.Catalogue.TimeoutMs = 30000
	}
	if cfg.SDE.TimeoutMs == 0 {
		cfg.SDE.TimeoutMs = 30000
	}

	qb := &cfg.QueryBuilder
	defaultProfile(&qb.PrimitiveTypeProfile, DefaultPrimitiveTypeProfileName)
	defaultProfile(&qb.CoreTableProfile, DefaultCoreTableProfileName)
	defaultProfile(&qb.QueryProfile, DefaultQueryProfileName)
	if qb.LookupConcurrency == 0 {
		qb.LookupConcurrency = 8
	}

	sub := &cfg.Submission
	if sub.Workers == 0 {
		sub.Workers = 4
	}
	if sub.QueueDepth == 0 {
		sub.QueueDepth = 64
	}
	if len(sub.Steps) == 0 {
		sub.Steps = append([]string(nil), DefaultSteps...)
	}
	if sub.DefaultErrorMessage == "" {
		sub.DefaultErrorMessage = DefaultErrorMessage
	}
}

func defaultProfile(p *ProfileRef, name string) {
	if p.Namespace == "" {
		p.Namespace = explorerNamespace
	}
	if p.Name == "" {
		p.Name = name
	}
}
