package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/internal/metrics"
)

// InstrumentedClient 包装底层客户端，为每次调用记录指标与日志。
// collector 为 nil 时只记日志，行为与底层客户端完全一致。
type InstrumentedClient struct {
	inner     Client
	model     string
	collector *metrics.Collector
	logger    *zap.Logger
}

var _ Client = (*InstrumentedClient)(nil)

// NewInstrumentedClient 创建带指标记录的客户端装饰器。
func NewInstrumentedClient(inner Client, model string, collector *metrics.Collector, logger *zap.Logger) *InstrumentedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedClient{
		inner:     inner,
		model:     model,
		collector: collector,
		logger:    logger,
	}
}

// Complete 透传调用并记录结果
func (c *InstrumentedClient) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	resp, err := c.inner.Complete(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		if c.collector != nil {
			c.collector.RecordLLMRequest(c.inner.Name(), c.model, "failure", elapsed, 0, 0)
		}
		c.logger.Warn("LLM 调用失败",
			zap.String("provider", c.inner.Name()),
			zap.String("model", c.model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	if c.collector != nil {
		c.collector.RecordLLMRequest(c.inner.Name(), model, "success", elapsed,
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	c.logger.Debug("LLM 调用完成",
		zap.String("provider", c.inner.Name()),
		zap.String("model", model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", elapsed))
	return resp, nil
}

// Name 返回底层客户端标识
func (c *InstrumentedClient) Name() string { return c.inner.Name() }
