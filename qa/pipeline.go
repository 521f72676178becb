package qa

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/campusqa/internal/metrics"
	"github.com/BaSui01/campusqa/search"
	"github.com/BaSui01/campusqa/types"
)

// cacheKeyHistoryTurns 参与缓存键计算的历史条数
const cacheKeyHistoryTurns = 3

// Retriever 本地知识检索。
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int) ([]types.Passage, error)
}

// Augmenter 外部搜索增强。失败在实现内部被吸收，调用永不报错。
type Augmenter interface {
	Augment(ctx context.Context, query string) []types.Passage
}

// AnswerCache 问答结果缓存。未命中约定返回 (nil, nil)，
// 基础设施故障返回 error，调用方按未命中处理。
type AnswerCache interface {
	GetAnswer(ctx context.Context, key string) (*types.AnswerResult, error)
	SetAnswer(ctx context.Context, key string, result *types.AnswerResult) error
}

// PipelineConfig 流水线参数。
type PipelineConfig struct {
	// TopK 本地检索返回的候选条数。
	TopK int
	// MaxSources 合并后引用数量上限。
	MaxSources int
}

// Pipeline 串起检索、搜索增强、合并、合成与降级的完整问答流程。
//
// 除只读索引、缓存客户端与计数器外不持有跨请求可变状态，
// 每个问题都是一个独立的工作单元。
type Pipeline struct {
	cfg       PipelineConfig
	retriever Retriever
	augmenter Augmenter
	synth     *Synthesizer
	cache     AnswerCache
	collector *metrics.Collector
	group     singleflight.Group
	tracer    trace.Tracer
	logger    *zap.Logger
}

// PipelineOption 配置 Pipeline 的可选依赖。
type PipelineOption func(*Pipeline)

// WithAnswerCache 启用问答结果缓存。
func WithAnswerCache(cache AnswerCache) PipelineOption {
	return func(p *Pipeline) { p.cache = cache }
}

// WithMetrics 启用流水线指标记录。
func WithMetrics(collector *metrics.Collector) PipelineOption {
	return func(p *Pipeline) { p.collector = collector }
}

// NewPipeline 创建问答流水线。
func NewPipeline(cfg PipelineConfig, retriever Retriever, augmenter Augmenter, synth *Synthesizer, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	if cfg.TopK < 1 {
		cfg.TopK = 5
	}
	if cfg.MaxSources < 1 {
		cfg.MaxSources = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		cfg:       cfg,
		retriever: retriever,
		augmenter: augmenter,
		synth:     synth,
		tracer:    otel.Tracer("github.com/BaSui01/campusqa/qa"),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CacheKey 计算问答缓存键：问题与最近三条历史序列化后的 md5。
func CacheKey(question string, history []types.Message) string {
	recent := history
	if len(recent) > cacheKeyHistoryTurns {
		recent = recent[len(recent)-cacheKeyHistoryTurns:]
	}
	historyStr := ""
	if len(recent) > 0 {
		if data, err := json.Marshal(recent); err == nil {
			historyStr = string(data)
		}
	}
	sum := md5.Sum([]byte(question + ":" + historyStr))
	return "ask:" + hex.EncodeToString(sum[:])
}

// Answer 处理一个问题，返回永不为空的回答。
// 只有入参校验失败会返回 error；流水线内部的一切故障都被
// 降级路径吸收，对调用方表现为 Degraded=true 的正常结果。
func (p *Pipeline) Answer(ctx context.Context, query types.Query) (types.AnswerResult, error) {
	question := normalizeQuestion(query.Text)
	if question == "" {
		return types.AnswerResult{}, types.NewError(types.ErrInvalidRequest, "问题不能为空")
	}
	if err := types.ValidateHistory(query.History); err != nil {
		return types.AnswerResult{}, err
	}
	query.Text = question

	ctx, span := p.tracer.Start(ctx, "qa.answer",
		trace.WithAttributes(attribute.Int("question.length", len([]rune(question)))))
	defer span.End()

	start := time.Now()
	key := CacheKey(question, query.History)

	// 实时类问题不走缓存，保证时效性
	cacheable := p.cache != nil && !search.IsRealtimeQuery(question)
	if cacheable {
		if cached := p.cacheProbe(ctx, key); cached != nil {
			p.recordQuestion("cached")
			p.logger.Info("缓存命中",
				zap.String("question", firstRunes(question, 20)),
				zap.Duration("elapsed", time.Since(start)))
			return *cached, nil
		}
	}

	// 并发的相同问题合并为一次计算，避免重复打到模型
	v, _, shared := p.group.Do(key, func() (any, error) {
		return p.answerOnce(ctx, query, cacheable, key), nil
	})
	result := v.(types.AnswerResult)

	outcome := "success"
	if result.Degraded {
		outcome = "degraded"
	}
	p.recordQuestion(outcome)

	p.logger.Info("问答完成",
		zap.String("question", firstRunes(question, 20)),
		zap.String("outcome", outcome),
		zap.Bool("is_real_time", result.IsRealTime),
		zap.Int("sources", len(result.Sources)),
		zap.Bool("shared", shared),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// answerOnce 执行一次完整的流水线计算。
func (p *Pipeline) answerOnce(ctx context.Context, query types.Query, cacheable bool, key string) types.AnswerResult {
	var (
		wg       sync.WaitGroup
		local    []types.Passage
		external []types.Passage
	)

	// 本地检索与外部搜索互不依赖，并行发起后在栅栏处汇合
	wg.Add(2)
	go func() {
		defer wg.Done()
		local = p.retrieveLocal(ctx, query.Text)
	}()
	go func() {
		defer wg.Done()
		external = p.augmentExternal(ctx, query.Text)
	}()
	wg.Wait()

	survivors := MergePassages(local, external, p.cfg.MaxSources)
	externalPresent := len(external) > 0
	if p.collector != nil {
		p.collector.RecordSourcesMerged(len(survivors))
	}

	result, err := p.synthesize(ctx, SynthesisRequest{
		Query:           query,
		Passages:        survivors,
		ExternalPresent: externalPresent,
	})
	if err != nil {
		p.logger.Warn("回答合成失败，转入降级路径",
			zap.String("question", firstRunes(query.Text, 20)),
			zap.Error(err))
		return FallbackAnswer(query.Text, types.SourcesFromPassages(survivors), externalPresent)
	}

	// 降级回答不写缓存，避免故障期间的回答活过故障本身
	if cacheable {
		p.cacheStore(ctx, key, result)
	}
	return result
}

func (p *Pipeline) retrieveLocal(ctx context.Context, question string) []types.Passage {
	ctx, span := p.tracer.Start(ctx, "qa.retrieve")
	defer span.End()

	start := time.Now()
	passages, err := p.retriever.Retrieve(ctx, question, p.cfg.TopK)
	p.recordStage("retrieve", time.Since(start))
	if err != nil {
		// 本地索引故障收敛为零条本地段落，流水线继续
		span.RecordError(err)
		p.logger.Warn("本地检索不可用，以零条本地段落继续", zap.Error(err))
		return nil
	}
	span.SetAttributes(attribute.Int("passages", len(passages)))
	return passages
}

func (p *Pipeline) augmentExternal(ctx context.Context, question string) []types.Passage {
	ctx, span := p.tracer.Start(ctx, "qa.augment")
	defer span.End()

	start := time.Now()
	passages := p.augmenter.Augment(ctx, question)
	p.recordStage("augment", time.Since(start))
	span.SetAttributes(attribute.Int("passages", len(passages)))
	return passages
}

func (p *Pipeline) synthesize(ctx context.Context, req SynthesisRequest) (types.AnswerResult, error) {
	ctx, span := p.tracer.Start(ctx, "qa.synthesize",
		trace.WithAttributes(attribute.Int("sources", len(req.Passages))))
	defer span.End()

	start := time.Now()
	result, err := p.synth.Synthesize(ctx, req)
	p.recordStage("synthesize", time.Since(start))
	if err != nil {
		span.RecordError(err)
	}
	return result, err
}

func (p *Pipeline) cacheProbe(ctx context.Context, key string) *types.AnswerResult {
	result, err := p.cache.GetAnswer(ctx, key)
	if err != nil {
		// 缓存故障按未命中处理；命中计数由缓存组件自己维护
		p.logger.Warn("缓存读取失败", zap.Error(err))
		return nil
	}
	return result
}

func (p *Pipeline) cacheStore(ctx context.Context, key string, result types.AnswerResult) {
	if err := p.cache.SetAnswer(ctx, key, &result); err != nil {
		p.logger.Warn("缓存写入失败", zap.Error(err))
	}
}

func (p *Pipeline) recordQuestion(outcome string) {
	if p.collector != nil {
		p.collector.RecordQuestion(outcome)
	}
}

func (p *Pipeline) recordStage(stage string, duration time.Duration) {
	if p.collector != nil {
		p.collector.RecordStageDuration(stage, duration)
	}
}

func normalizeQuestion(s string) string {
	return strings.TrimSpace(s)
}

// firstRunes 按字符截取日志摘要，避免把长问题整段写进日志
func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
