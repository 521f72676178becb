package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BaSui01/campusqa/api"
	"github.com/BaSui01/campusqa/internal/cache"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 运行统计 Handler
// =============================================================================

// DocumentCounter 返回本地索引的文档数。
type DocumentCounter interface {
	Count(ctx context.Context) (int, error)
}

// AnswerStatsSource 回答缓存的进程内命中统计来源。
type AnswerStatsSource interface {
	Stats() cache.AnswerStats
}

// RedisStatsSource Redis 侧统计来源。
type RedisStatsSource interface {
	Stats(ctx context.Context) (*cache.Stats, error)
}

// StatsHandler 运行统计处理器。
// answerCache 和 redis 在缓存未启用时传 nil，对应字段输出 null。
type StatsHandler struct {
	index       DocumentCounter
	answerCache AnswerStatsSource
	redis       RedisStatsSource
	startTime   time.Time
	logger      *zap.Logger
}

// NewStatsHandler 创建运行统计处理器
func NewStatsHandler(index DocumentCounter, answerCache AnswerStatsSource, redis RedisStatsSource, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		index:       index,
		answerCache: answerCache,
		redis:       redis,
		startTime:   time.Now(),
		logger:      logger,
	}
}

// HandleStats 处理 /api/stats 请求
// @Summary 运行统计
// @Description 返回缓存命中、索引规模与运行时长
// @Tags 统计
// @Produce json
// @Success 200 {object} Response{data=api.StatsResponse} "运行统计"
// @Router /api/stats [get]
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	resp := api.StatsResponse{
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	if h.index != nil {
		count, err := h.index.Count(r.Context())
		if err != nil {
			h.logger.Warn("index count failed", zap.Error(err))
		} else {
			resp.Index.Documents = count
		}
	}

	if h.answerCache != nil {
		stats := h.answerCache.Stats()
		resp.AnswerCache = &api.AnswerCacheStats{
			Hits:          stats.Hits,
			Misses:        stats.Misses,
			TotalRequests: stats.TotalRequests,
			HitRate:       stats.HitRate,
		}
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		stats, err := h.redis.Stats(ctx)
		if err != nil {
			// Redis 不可达不影响其余统计
			h.logger.Warn("redis stats failed", zap.Error(err))
		} else {
			resp.Redis = &api.RedisStats{
				Keys:           stats.Keys,
				PoolTotalConns: stats.PoolTotalConns,
				PoolIdleConns:  stats.PoolIdleConns,
			}
		}
	}

	WriteSuccess(w, resp)
}
