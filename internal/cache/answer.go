package cache

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/internal/metrics"
	"github.com/BaSui01/campusqa/types"
)

// =============================================================================
// 🎯 回答缓存
// =============================================================================

// AnswerCache 把问答结果以 JSON 形式写入 Redis，并在进程内维护
// 命中计数。未命中返回 (nil, nil)，与流水线的缓存契约一致。
type AnswerCache struct {
	manager   *Manager
	ttl       time.Duration
	collector *metrics.Collector
	logger    *zap.Logger
	hits      atomic.Uint64
	misses    atomic.Uint64
}

// AnswerCacheOption 配置 AnswerCache 的可选依赖。
type AnswerCacheOption func(*AnswerCache)

// WithCollector 启用 Prometheus 缓存命中指标。
func WithCollector(collector *metrics.Collector) AnswerCacheOption {
	return func(c *AnswerCache) { c.collector = collector }
}

// NewAnswerCache 创建回答缓存。ttl 不大于零时采用 Manager 的默认 TTL。
func NewAnswerCache(manager *Manager, ttl time.Duration, logger *zap.Logger, opts ...AnswerCacheOption) *AnswerCache {
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &AnswerCache{
		manager: manager,
		ttl:     ttl,
		logger:  logger.With(zap.String("component", "answer_cache")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAnswer 按键读取缓存的回答，未命中返回 (nil, nil)。
func (c *AnswerCache) GetAnswer(ctx context.Context, key string) (*types.AnswerResult, error) {
	var result types.AnswerResult
	err := c.manager.GetJSON(ctx, key, &result)
	if IsCacheMiss(err) {
		c.misses.Add(1)
		if c.collector != nil {
			c.collector.RecordCacheMiss("answer")
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.hits.Add(1)
	if c.collector != nil {
		c.collector.RecordCacheHit("answer")
	}
	return &result, nil
}

// SetAnswer 写入回答，使用构造时指定的 TTL。
func (c *AnswerCache) SetAnswer(ctx context.Context, key string, result *types.AnswerResult) error {
	return c.manager.SetJSON(ctx, key, result, c.ttl)
}

// Clear 清空全部缓存条目，进程内命中计数保留。
func (c *AnswerCache) Clear(ctx context.Context) error {
	if err := c.manager.Flush(ctx); err != nil {
		return err
	}
	c.logger.Info("回答缓存已清空")
	return nil
}

// =============================================================================
// 📊 命中统计
// =============================================================================

// AnswerStats 进程内命中统计，HitRate 为百分比，保留两位小数。
type AnswerStats struct {
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	TotalRequests uint64  `json:"total_requests"`
	HitRate       float64 `json:"hit_rate"`
}

// Stats 返回当前命中统计快照。
func (c *AnswerCache) Stats() AnswerStats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(hits)/float64(total)*10000) / 100
	}

	return AnswerStats{
		Hits:          hits,
		Misses:        misses,
		TotalRequests: total,
		HitRate:       rate,
	}
}
