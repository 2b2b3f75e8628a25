package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"budgetadvisor/internal/answer"
	"budgetadvisor/internal/cache"
	"budgetadvisor/internal/embed"
	"budgetadvisor/internal/generate"
	"budgetadvisor/internal/hfapi"
	"budgetadvisor/internal/knowledge"
	"budgetadvisor/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger     *slog.Logger
	httpClient *http.Client
	corpus     knowledge.Corpus
}

// Option configures a DefaultFactory.
type Option func(*DefaultFactory)

// WithHTTPClient sets the client used for the HuggingFace Inference API.
func WithHTTPClient(c *http.Client) Option {
	return func(f *DefaultFactory) { f.httpClient = c }
}

// WithCorpus replaces the reference corpus used by the retrieval strategy.
func WithCorpus(c knowledge.Corpus) Option {
	return func(f *DefaultFactory) { f.corpus = c }
}

// NewFactory creates a new answerer factory
func NewFactory(logger *slog.Logger, opts ...Option) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	f := &DefaultFactory{
		logger: logger,
		corpus: knowledge.DefaultCorpus(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateAnswerer implements Factory.CreateAnswerer. Models are not loaded
// here; the returned answerer builds them on first use or on Warm.
func (f *DefaultFactory) CreateAnswerer(config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Strategy == answer.StrategyNone {
		f.logger.Info("Question answering disabled")
		return &Result{Answerer: answer.Disabled{}, Strategy: config.Strategy}, nil
	}

	res := &Result{Strategy: config.Strategy, Caches: make(map[string]cache.Observed)}
	closers := &closerStack{}

	embeddings := cache.NewLRUCache[[]float32](embeddingCacheSize, 0)
	if config.Strategy == answer.StrategyRetrieval {
		res.Caches["embeddings"] = embeddings
	}

	lazy := answer.NewLazy(func(ctx context.Context) (answer.Answerer, error) {
		a, err := f.build(ctx, config, embeddings, closers)
		if err != nil {
			f.logger.Error("Failed to initialize answerer", "strategy", config.Strategy, "error", err)
			return nil, err
		}
		f.logger.Info("Initialized answerer",
			"strategy", config.Strategy,
			"generate_backend", config.GenerateBackend,
			"embed_backend", config.EmbedBackend)
		return a, nil
	})

	a := answer.WithTimeout(lazy, config.InferenceTimeout)
	if config.AnswerCacheSize > 0 {
		answers := cache.NewLRUCache[string](config.AnswerCacheSize, config.AnswerCacheTTL)
		res.Caches["answers"] = answers
		a = answer.NewCached(a, answers)
	}

	res.Answerer = a
	res.Warm = lazy.Warm
	res.Cleanup = closers.Close
	return res, nil
}

func (f *DefaultFactory) build(ctx context.Context, config Config, embeddings *cache.LRUCache[[]float32], closers *closerStack) (answer.Answerer, error) {
	gen, err := f.createGenerator(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	if config.Strategy == answer.StrategyDirect {
		return answer.NewDirect(gen, "", config.MaxLength, config.NumBeams), nil
	}

	emb, err := f.createEmbedder(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	closers.push(emb.Close)

	// The persistent store is optional; a broken one only costs re-embedding.
	var store embed.VectorStore
	if config.EmbedCachePath != "" {
		sqliteStore, err := storage.NewSQLiteStore(config.EmbedCachePath)
		if err != nil {
			f.logger.Warn("Failed to open embedding store, continuing without it",
				"error", err, "path", config.EmbedCachePath)
		} else {
			closers.push(sqliteStore.Close)
			store = sqliteStore
		}
	}

	// Only corpus vectors are persisted; query vectors stay in memory.
	corpusEmb := embed.NewCached(emb, embeddings, store, f.logger)
	idx, err := knowledge.BuildIndex(ctx, corpusEmb, f.corpus)
	if err != nil {
		return nil, fmt.Errorf("failed to build reference index: %w", err)
	}

	f.logger.Info("Built reference index",
		"model", emb.ModelID(),
		"sentences", idx.Size(),
		"dim", idx.Dim(),
		"persistent_cache", store != nil)

	queryEmb := embed.NewCached(emb, embeddings, nil, f.logger)
	return answer.NewRetrieval(queryEmb, idx, gen, config.MaxLength), nil
}

func (f *DefaultFactory) createGenerator(ctx context.Context, config Config) (generate.Generator, error) {
	switch config.GenerateBackend {
	case GenerateHF:
		return generate.NewHF(f.hfClient(config), config.GenerateModel), nil
	case GenerateGemini:
		return generate.NewGemini(ctx, config.GeminiAPIKey, config.GeminiModel)
	default:
		return nil, fmt.Errorf("unsupported generate backend: %s", config.GenerateBackend)
	}
}

func (f *DefaultFactory) createEmbedder(ctx context.Context, config Config) (embed.Embedder, error) {
	switch config.EmbedBackend {
	case EmbedONNX:
		return embed.NewORT(config.ORT)
	case EmbedHF:
		return embed.NewRemote(f.hfClient(config), config.EmbedModel), nil
	case EmbedGemini:
		return embed.NewGemini(ctx, config.GeminiAPIKey, config.GeminiEmbedModel)
	default:
		return nil, fmt.Errorf("unsupported embed backend: %s", config.EmbedBackend)
	}
}

func (f *DefaultFactory) hfClient(config Config) *hfapi.Client {
	return hfapi.NewClient(config.HFAPIURL, config.HFAPIToken, f.httpClient)
}

// closerStack closes resources in reverse order of acquisition.
type closerStack struct {
	mu  sync.Mutex
	fns []func() error
}

func (s *closerStack) push(fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
}

// Close runs every closer once and joins their errors.
func (s *closerStack) Close() error {
	s.mu.Lock()
	fns := s.fns
	s.fns = nil
	s.mu.Unlock()

	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
