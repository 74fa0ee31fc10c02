// Package cli holds the flag handling and engine setup shared by the topix
// binaries.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cognicore/topix/internal/logger"
	"github.com/cognicore/topix/internal/metrics"
	"github.com/cognicore/topix/pkg/topix"
	"github.com/cognicore/topix/pkg/topix/config"
	"github.com/cognicore/topix/pkg/topix/store"
	"github.com/cognicore/topix/pkg/topix/store/sqlite"
)

// Flags are the command line options common to all binaries. Every option
// except --config overrides the matching YAML setting when it is given.
type Flags struct {
	fs *flag.FlagSet

	configPath   string
	dir          string
	modelPath    string
	modelName    string
	scorer       string
	vocab        string
	vocabFormat  string
	vocabName    string
	vocabCache   string
	serialize    bool
	allowUnbound bool
	language     string
	encoding     string
	stemmer      string
	stopwords    string
	topics       int
	cutoff       float64
	globalDict   bool
	writeScores  bool
	folds        int
	workers      int
	logEnv       string
	logLevel     string
	metricsAddr  string
}

// Register defines the common flags on fs.
func Register(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file (optional)")
	fs.StringVar(&f.dir, "dir", "", "Document directory")
	fs.StringVar(&f.modelPath, "model", "", "SQLite file holding trained models")
	fs.StringVar(&f.modelName, "name", "", "Model name inside the model file")
	fs.StringVar(&f.scorer, "scorer", "", "Ranking model: logistic or bayes")
	fs.StringVar(&f.vocab, "vocab", "", "Vocabulary file (.rdf, .rdf.gz, .nt, .nt.gz or .en)")
	fs.StringVar(&f.vocabFormat, "vocab-format", "", "Vocabulary format: skos or text")
	fs.StringVar(&f.vocabName, "vocab-name", "", "Vocabulary name (selects normalization policy)")
	fs.StringVar(&f.vocabCache, "vocab-cache", "", "SQLite file caching parsed vocabularies (default: the model file)")
	fs.BoolVar(&f.serialize, "serialize", false, "Cache the parsed vocabulary in the model file")
	fs.BoolVar(&f.allowUnbound, "allow-unbound", false, "Keep candidates that match no vocabulary concept")
	fs.StringVar(&f.language, "language", "", "Document language")
	fs.StringVar(&f.encoding, "encoding", "", "Document encoding (IANA name)")
	fs.StringVar(&f.stemmer, "stemmer", "", "Stemmer name")
	fs.StringVar(&f.stopwords, "stopwords", "", "Stopword language or YAML stoplist path")
	fs.IntVar(&f.topics, "topics", 0, "Maximum topics per document")
	fs.Float64Var(&f.cutoff, "cutoff", 0, "Minimum probability of an emitted topic")
	fs.BoolVar(&f.globalDict, "global-dict", false, "Build document frequencies from the extraction batch")
	fs.BoolVar(&f.writeScores, "write-scores", false, "Append scores to .maui output lines")
	fs.IntVar(&f.folds, "folds", 0, "Cross-validation folds")
	fs.IntVar(&f.workers, "workers", 0, "Parallel document workers (0 = GOMAXPROCS)")
	fs.StringVar(&f.logEnv, "log-env", "", "Logger environment: dev or prod")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return f
}

// Config loads the YAML file named by --config (or the defaults) and
// applies the flags that were set on the command line.
func (f *Flags) Config() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
	} else {
		cfg = config.Default()
	}

	// Inferred values must follow an overridden vocabulary path.
	vocabChanged := false
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "dir":
			cfg.Documents.Dir = f.dir
		case "model":
			cfg.Model.Path = f.modelPath
		case "name":
			cfg.Model.Name = f.modelName
		case "scorer":
			cfg.Model.Scorer = f.scorer
		case "vocab":
			cfg.Vocabulary.Path = f.vocab
			vocabChanged = true
		case "vocab-format":
			cfg.Vocabulary.Format = f.vocabFormat
		case "vocab-name":
			cfg.Vocabulary.Name = f.vocabName
		case "vocab-cache":
			cfg.Vocabulary.CachePath = f.vocabCache
		case "serialize":
			cfg.Vocabulary.Serialize = f.serialize
		case "allow-unbound":
			cfg.Vocabulary.AllowUnbound = f.allowUnbound
		case "language":
			cfg.Documents.Language = f.language
		case "encoding":
			cfg.Documents.Encoding = f.encoding
		case "stemmer":
			cfg.Stemmer = f.stemmer
		case "stopwords":
			cfg.Stopwords = f.stopwords
		case "topics":
			cfg.Extraction.Topics = f.topics
		case "cutoff":
			cfg.Extraction.Cutoff = f.cutoff
		case "global-dict":
			cfg.Extraction.GlobalDictionaryFromTest = f.globalDict
		case "write-scores":
			cfg.Extraction.WriteScores = f.writeScores
		case "folds":
			cfg.CrossValidation.Folds = f.folds
		case "workers":
			cfg.Extraction.Workers = f.workers
		case "log-env":
			cfg.Logging.Env = f.logEnv
		case "log-level":
			cfg.Logging.Level = f.logLevel
		case "metrics-addr":
			cfg.Metrics.Addr = f.metricsAddr
		}
	})
	if vocabChanged && !f.isSet("vocab-format") {
		cfg.Vocabulary.Format = ""
	}
	if vocabChanged && !f.isSet("vocab-name") {
		cfg.Vocabulary.Name = ""
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (f *Flags) isSet(name string) bool {
	set := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}

// Env is a ready-to-use engine together with the resources it owns.
type Env struct {
	Topix  *topix.Topix
	Logger *zap.Logger

	cache  store.Store
	server *http.Server
}

// Setup builds the logger, the metrics registry, the model store (when
// model.path is set) and the engine. The caller must Close the Env.
func Setup(ctx context.Context, cfg config.Config) (*Env, error) {
	log, err := logger.New(logger.Options{Env: cfg.Logging.Env, Level: cfg.Logging.Level})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	env := &Env{Logger: log}
	if cfg.Metrics.Addr != "" {
		env.server = serveMetrics(cfg.Metrics.Addr, reg, log)
	}

	opts := topix.Options{Config: cfg, Metrics: m}
	if cfg.Model.Path != "" {
		st, err := sqlite.OpenSQLite(ctx, cfg.Model.Path)
		if err != nil {
			env.Close()
			return nil, err
		}
		opts.Store = st
	}
	// A separate vocabulary cache file keeps large thesauri out of the
	// model file.
	if cfg.Vocabulary.CachePath != "" && cfg.Vocabulary.CachePath != cfg.Model.Path {
		cache, err := sqlite.OpenSQLite(ctx, cfg.Vocabulary.CachePath)
		if err != nil {
			closeStore(opts.Store, log)
			env.Close()
			return nil, err
		}
		env.cache = cache
		opts.Cache = cache
	}

	t, err := topix.New(logger.NewContext(ctx, log), opts)
	if err != nil {
		closeStore(opts.Store, log)
		env.Close()
		return nil, err
	}
	env.Topix = t
	return env, nil
}

func closeStore(st store.Store, log *zap.Logger) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		log.Warn("close store", zap.Error(err))
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}

// Close releases the engine, stops the metrics server and flushes the log.
func (e *Env) Close() {
	if e.Topix != nil {
		if err := e.Topix.Close(); err != nil {
			e.Logger.Warn("close store", zap.Error(err))
		}
	}
	closeStore(e.cache, e.Logger)
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.server.Shutdown(ctx)
	}
	_ = e.Logger.Sync()
}
