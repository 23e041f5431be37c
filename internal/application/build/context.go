// Package build runs the extract, link and write pipeline that turns the script corpus
// into index artifacts.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"scriptdex/internal/adapter/outbound/artifact"
	"scriptdex/internal/adapter/outbound/corpus"
	"scriptdex/internal/application/common"
	"scriptdex/internal/application/common/logging"
	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/application/registry"
	"scriptdex/internal/config"
	"scriptdex/internal/domain/service"
	"scriptdex/internal/port/outbound"
	"scriptdex/internal/version"
)

// Context is threaded through every build step.
type Context struct {
	Corpus     outbound.CorpusView
	Config     *config.Config
	Logger     logging.ApplicationLogger
	Registry   *registry.ExtractorRegistry
	Writer     *artifact.Writer
	Metrics    *Metrics
	Classifier *service.Classifier
}

type options struct {
	corpus      outbound.CorpusView
	metrics     *Metrics
	meta        func(*artifact.MetaFactory) *artifact.MetaFactory
	toolVersion string
}

// Option configures NewContext.
type Option func(*options)

// WithCorpus uses view instead of opening the configured corpus.
func WithCorpus(view outbound.CorpusView) Option {
	return func(o *options) { o.corpus = view }
}

// WithMetrics records build metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithMetaFactory adjusts the meta factory of the writer. Tests use it to pin the clock.
func WithMetaFactory(fn func(*artifact.MetaFactory) *artifact.MetaFactory) Option {
	return func(o *options) { o.meta = fn }
}

// WithToolVersion stamps v into the step signatures instead of the linked-in version.
func WithToolVersion(v string) Option {
	return func(o *options) { o.toolVersion = v }
}

func writerOptions(cfg *config.Config) []artifact.WriterOption {
	return []artifact.WriterOption{
		artifact.WithIconBase(cfg.Build.IconBase),
		artifact.WithNames(cfg.I18n.PreferredLang, cfg.I18n.SecondaryLang),
	}
}

// NewContext opens the corpus and prepares the writer. It fails with
// domain.ErrNoSourceCorpus before anything is written.
func NewContext(ctx context.Context, cfg *config.Config, opts ...Option) (*Context, error) {
	o := options{toolVersion: version.GetVersion().Version}
	for _, opt := range opts {
		opt(&o)
	}

	bc := &Context{
		Config:   cfg,
		Corpus:   o.corpus,
		Logger:   slogger.WithComponent("build"),
		Registry: registry.Default(),
		Metrics:  o.metrics,
	}

	if bc.Corpus == nil {
		view, err := corpus.Open(ctx, corpus.Options{
			ScriptsZip:  cfg.Paths.ScriptsZip,
			ScriptsDir:  cfg.Paths.ScriptsDir,
			DstRoot:     cfg.Paths.DstRoot,
			ProjectRoot: cfg.Paths.ProjectRoot,
		})
		if err != nil {
			return nil, common.WrapServiceError(common.OpOpenCorpus, err)
		}
		bc.Corpus = view
	}

	rawOverrides, err := readTagOverrides(cfg.Build.TagOverrides)
	if err != nil {
		return nil, err
	}
	overrides, err := parseTagOverrides(cfg.Build.TagOverrides, rawOverrides)
	if err != nil {
		return nil, err
	}
	bc.Classifier = service.NewClassifier(overrides)

	store := artifact.NewStore(cfg.Paths.IndexPath())
	inputs := collectInputs(bc.Corpus, o.toolVersion, rawOverrides)
	meta := artifact.NewMetaFactory(store, bc.Corpus.SHA256_12(), bc.Corpus.Sources()).
		WithInputs(inputs.signatures(steps))
	if o.meta != nil {
		meta = o.meta(meta)
	}
	bc.Writer = artifact.NewWriter(store, meta, writerOptions(cfg)...)
	return bc, nil
}

// LoadTagOverrides reads the YAML override rules at path. An empty path means no rules; a
// configured but missing file is an error.
func LoadTagOverrides(path string) (*service.TagOverrides, error) {
	data, err := readTagOverrides(path)
	if err != nil {
		return nil, err
	}
	return parseTagOverrides(path, data)
}

func readTagOverrides(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.WrapServiceError(common.OpLoadTagOverrides, fmt.Errorf("%s: file not found", path))
		}
		return nil, common.WrapServiceError(common.OpLoadTagOverrides, fmt.Errorf("%s: %w", path, err))
	}
	return data, nil
}

func parseTagOverrides(path string, data []byte) (*service.TagOverrides, error) {
	if path == "" {
		return nil, nil
	}
	overrides, err := service.ParseTagOverrides(data)
	if err != nil {
		return nil, common.WrapServiceError(common.OpLoadTagOverrides, fmt.Errorf("%s: %w", path, err))
	}
	return overrides, nil
}
