package qa

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/llm"
	"github.com/BaSui01/campusqa/llm/retry"
	"github.com/BaSui01/campusqa/types"
)

// SynthesisRequest 单次合成调用的完整输入。每个请求新建，从不缓存。
type SynthesisRequest struct {
	// Query 用户问题与对话历史。
	Query types.Query
	// Passages 合并去重后的幸存段落，含正文，已按排名排序。
	Passages []types.Passage
	// ExternalPresent 任一外部 provider 是否产出过段落，决定 is_real_time。
	ExternalPresent bool
}

// SynthesizerConfig 控制模型调用的超时与重试。
type SynthesizerConfig struct {
	// Timeout 模型调用的硬超时，到期后在途响应被丢弃。
	Timeout time.Duration
	// Temperature 采样温度，零值时使用客户端默认。
	Temperature float64
	// MaxTokens 回答长度上限，零值时使用客户端默认。
	MaxTokens int
	// MaxRetries 瞬时失败的补偿调用次数，客户端错误不重试。
	MaxRetries int
}

// Synthesizer 组装提示词并调用大模型生成回答。
//
// 失败语义：超时、重试耗尽、空回答一律返回 SYNTHESIS_FAILED，
// 由调用方转入降级路径；本类型自身从不产出降级回答。
type Synthesizer struct {
	cfg     SynthesizerConfig
	client  llm.Client
	prompts *PromptBuilder
	retryer retry.Retryer
	logger  *zap.Logger
}

// NewSynthesizer 创建回答合成器。
func NewSynthesizer(cfg SynthesizerConfig, client llm.Client, prompts *PromptBuilder, logger *zap.Logger) *Synthesizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 100 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	policy := retry.DefaultRetryPolicy()
	policy.MaxRetries = cfg.MaxRetries

	return &Synthesizer{
		cfg:     cfg,
		client:  client,
		prompts: prompts,
		retryer: retry.NewBackoffRetryer(policy, logger),
		logger:  logger,
	}
}

// Synthesize 执行 组装 → 调用 → 校验 的完整合成流程。
// 传入的 ctx 叠加配置超时后成为整条请求的取消边界。
func (s *Synthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (types.AnswerResult, error) {
	messages := s.prompts.Build(req.Query, req.Passages)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := retry.DoWithResultTyped(s.retryer, callCtx, func() (*llm.ChatResponse, error) {
		return s.client.Complete(callCtx, &llm.ChatRequest{
			Messages:    messages,
			Temperature: s.cfg.Temperature,
			MaxTokens:   s.cfg.MaxTokens,
		})
	})
	if err != nil {
		s.logger.Warn("模型调用失败，转入降级路径",
			zap.String("model", s.client.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return types.AnswerResult{}, types.NewError(types.ErrSynthesisFailed, "模型生成回答失败").WithCause(err)
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return types.AnswerResult{}, types.NewError(types.ErrSynthesisFailed, "模型返回了空回答")
	}

	s.logger.Debug("回答合成完成",
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))

	return types.AnswerResult{
		Answer:     answer,
		Sources:    types.SourcesFromPassages(req.Passages),
		IsRealTime: req.ExternalPresent,
		Degraded:   false,
	}, nil
}
