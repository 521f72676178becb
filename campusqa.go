// Package campusqa provides a top-level convenience entry point for embedding
// the campus QA engine in other Go programs.
//
// Usage:
//
//	import "github.com/BaSui01/campusqa"
//
//	engine, err := campusqa.New()
//	engine, err := campusqa.New(campusqa.WithAPIKey("sk-..."))
//	engine, err := campusqa.New(campusqa.WithModelClient(myClient), campusqa.WithLogger(logger))
//
// 不配置模型时引擎依然可用：合成失败自动降级为资料摘要回答，
// 内置语料保证十类常见校园问题离线可答。
package campusqa

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/config"
	"github.com/BaSui01/campusqa/internal/store"
	"github.com/BaSui01/campusqa/llm"
	"github.com/BaSui01/campusqa/llm/tokenizer"
	"github.com/BaSui01/campusqa/qa"
	"github.com/BaSui01/campusqa/rag"
	"github.com/BaSui01/campusqa/search"
	"github.com/BaSui01/campusqa/types"
)

// Option configures the engine created by [New].
type Option func(*options)

type options struct {
	cfg       *config.Config
	client    llm.Client
	logger    *zap.Logger
	documents []rag.Document
}

// WithConfig uses a fully built configuration instead of the defaults.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithAPIKey sets the SiliconFlow API key on the default model config.
func WithAPIKey(key string) Option {
	return func(o *options) {
		if o.cfg == nil {
			o.cfg = config.DefaultConfig()
		}
		o.cfg.Model.APIKey = key
	}
}

// WithModelClient sets a pre-built chat completion client,
// bypassing the SiliconFlow client entirely.
func WithModelClient(client llm.Client) Option {
	return func(o *options) { o.client = client }
}

// WithLogger sets a custom zap logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDocuments adds knowledge documents on top of the builtin corpus.
func WithDocuments(docs ...rag.Document) Option {
	return func(o *options) { o.documents = append(o.documents, docs...) }
}

// Engine 进程内问答引擎：内置语料 + 本地向量检索 + 可选搜索增强与模型合成。
// 不带缓存与指标，适合作为库嵌入；完整服务形态见 cmd/campusqa。
type Engine struct {
	pipeline  *qa.Pipeline
	retriever *rag.Retriever
}

// New creates an [Engine] with minimal configuration.
// Zero options yields an offline engine: builtin corpus, mock search,
// degraded synthesis (no model calls).
func New(opts ...Option) (*Engine, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := o.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// 本地检索：内置语料 + 调用方追加的文档
	embedder := rag.NewHashEmbedder(cfg.Retrieval.Dimension)
	index := rag.NewInMemoryIndex(logger)
	retriever := rag.NewRetriever(rag.RetrieverConfig{MinScore: cfg.Retrieval.MinScore}, embedder, index, logger)

	docs := make([]rag.Document, 0, len(o.documents)+10)
	for _, d := range store.BuiltinCorpus() {
		docs = append(docs, rag.Document{ID: d.DocID, Title: d.Title, Content: d.Content, URL: d.URL})
	}
	docs = append(docs, o.documents...)

	if err := retriever.Index(context.Background(), docs); err != nil {
		return nil, fmt.Errorf("failed to index knowledge: %w", err)
	}

	// 搜索增强，按配置顺序注册
	augmenter := search.NewAugmenter(logger)
	for _, p := range cfg.Search.Providers() {
		if !p.Config.Enabled {
			continue
		}
		switch p.Name {
		case "mock":
			augmenter.Register(search.NewMockProvider(), p.Config.Timeout)
		case "gugudata":
			augmenter.Register(search.NewGuguDataProvider(p.Config.Endpoint, p.Config.APIKey, logger), p.Config.Timeout)
		case "serpapi":
			augmenter.Register(search.NewSerpAPIProvider(p.Config.Endpoint, p.Config.APIKey, logger), p.Config.Timeout)
		}
	}

	// 模型客户端：未配置 key 时不发起任何网络调用，直接走降级
	client := o.client
	if client == nil {
		if cfg.Model.APIKey == "" {
			client = modelDisabled{}
		} else {
			client = llm.NewSiliconFlowClient(llm.ClientConfig{
				APIKey:      cfg.Model.APIKey,
				BaseURL:     cfg.Model.Endpoint,
				Model:       cfg.Model.Name,
				Temperature: cfg.Model.Temperature,
				MaxTokens:   cfg.Model.MaxTokens,
			}, logger)
		}
	}

	prompts := qa.NewPromptBuilder(qa.PromptConfig{
		HistoryTurns:    cfg.Answer.HistoryTurns,
		MaxPromptTokens: cfg.Answer.MaxPromptTokens,
	}, tokenizer.New(logger), logger)

	synth := qa.NewSynthesizer(qa.SynthesizerConfig{
		Timeout:     cfg.Model.Timeout,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
		MaxRetries:  cfg.Model.MaxRetries,
	}, client, prompts, logger)

	pipeline := qa.NewPipeline(qa.PipelineConfig{
		TopK:       cfg.Retrieval.TopK,
		MaxSources: cfg.Answer.MaxSources,
	}, retriever, augmenter, synth, logger)

	return &Engine{pipeline: pipeline, retriever: retriever}, nil
}

// Answer 回答一个问题。history 为按时间先后排列的既往对话轮次。
// 检索或模型故障时返回降级回答而非错误；只有问题本身非法才报错。
func (e *Engine) Answer(ctx context.Context, question string, history ...types.Message) (types.AnswerResult, error) {
	return e.pipeline.Answer(ctx, types.Query{Text: question, History: history})
}

// DocumentCount 返回索引中的文档数量。
func (e *Engine) DocumentCount(ctx context.Context) (int, error) {
	return e.retriever.Count(ctx)
}

// modelDisabled 在未配置模型时立即失败，触发流水线的降级路径。
type modelDisabled struct{}

func (modelDisabled) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, types.NewError(types.ErrProviderFailure, "model not configured")
}

func (modelDisabled) Name() string { return "disabled" }
