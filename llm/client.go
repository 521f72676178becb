package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/internal/tlsutil"
	"github.com/BaSui01/campusqa/types"
)

// ClientConfig 聊天补全客户端配置
type ClientConfig struct {
	APIKey      string  `json:"api_key" yaml:"api_key"`
	BaseURL     string  `json:"base_url" yaml:"base_url"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
}

// ChatRequest 聊天补全请求
type ChatRequest struct {
	Messages    []types.Message `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

// Usage token 用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse 聊天补全响应
type ChatResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Client 聊天补全客户端接口
type Client interface {
	// Complete 执行一次聊天补全
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name 返回 provider 标识
	Name() string
}

// SiliconFlowClient 走 SiliconFlow OpenAI 兼容端点的聊天客户端
type SiliconFlowClient struct {
	cfg    ClientConfig
	client *http.Client
	logger *zap.Logger
}

// NewSiliconFlowClient 创建 SiliconFlow 客户端。
// 不在 http.Client 上设置超时：调用方通过 context 控制取消边界，
// 重试也在同一个边界内进行。
func NewSiliconFlowClient(cfg ClientConfig, logger *zap.Logger) *SiliconFlowClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.siliconflow.cn/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-ai/DeepSeek-R1-Distill-Qwen-7B"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SiliconFlowClient{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(0),
		logger: logger,
	}
}

// Name 返回 provider 标识
func (c *SiliconFlowClient) Name() string { return "siliconflow" }

// ====== OpenAI 兼容的 wire 结构 ======

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

type openAIErrorResp struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete 执行一次聊天补全
func (c *SiliconFlowClient) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body := openAIRequest{
		Model:       c.cfg.Model,
		Messages:    convertMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}
	if body.Temperature == 0 {
		body.Temperature = c.cfg.Temperature
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.cfg.MaxTokens
	}

	payload, _ := json.Marshal(body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/chat/completions", strings.TrimRight(c.cfg.BaseURL, "/")),
		bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to build completion request").
			WithCause(err).
			WithProvider(c.Name())
	}
	c.buildHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, types.NewError(types.ErrUpstreamTimeout, "chat completion timed out").
				WithCause(err).
				WithHTTPStatus(http.StatusGatewayTimeout).
				WithRetryable(true).
				WithProvider(c.Name())
		case errors.Is(err, context.Canceled):
			return nil, types.NewError(types.ErrUpstreamError, "chat completion canceled").
				WithCause(err).
				WithHTTPStatus(http.StatusBadGateway).
				WithProvider(c.Name())
		default:
			return nil, types.NewError(types.ErrUpstreamError, err.Error()).
				WithHTTPStatus(http.StatusBadGateway).
				WithRetryable(true).
				WithProvider(c.Name())
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, mapError(resp.StatusCode, readErrMsg(resp.Body), c.Name())
	}

	var oa openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&oa); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "completion payload is not valid JSON").
			WithCause(err).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).
			WithProvider(c.Name())
	}

	if len(oa.Choices) == 0 {
		return nil, types.NewError(types.ErrSynthesisFailed, "completion returned no choices").
			WithProvider(c.Name())
	}

	c.logger.Debug("chat completion finished",
		zap.String("model", oa.Model),
		zap.Int("prompt_tokens", oa.Usage.PromptTokens),
		zap.Int("completion_tokens", oa.Usage.CompletionTokens))

	return &ChatResponse{
		Content: cleanContent(oa.Choices[0].Message.Content),
		Model:   oa.Model,
		Usage:   oa.Usage,
	}, nil
}

func (c *SiliconFlowClient) buildHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
}

func convertMessages(msgs []types.Message) []openAIMessage {
	out := make([]openAIMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openAIMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// thinkTagRe 匹配 DeepSeek-R1 系列输出中的思维链标签
var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// cleanContent 去掉推理模型的 <think> 片段并裁剪空白
func cleanContent(content string) string {
	return strings.TrimSpace(thinkTagRe.ReplaceAllString(content, ""))
}

// mapError 把上游 HTTP 状态映射为流水线错误
func mapError(status int, msg string, provider string) *types.Error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.NewError(types.ErrUnauthorized, msg).
			WithHTTPStatus(status).
			WithProvider(provider)
	case http.StatusPaymentRequired:
		return types.NewError(types.ErrQuotaExceeded, msg).
			WithHTTPStatus(status).
			WithProvider(provider)
	case http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimited, msg).
			WithHTTPStatus(status).
			WithRetryable(true).
			WithProvider(provider)
	case http.StatusBadRequest:
		if strings.Contains(strings.ToLower(msg), "quota") ||
			strings.Contains(strings.ToLower(msg), "balance") {
			return types.NewError(types.ErrQuotaExceeded, msg).
				WithHTTPStatus(status).
				WithProvider(provider)
		}
		return types.NewError(types.ErrInvalidRequest, msg).
			WithHTTPStatus(status).
			WithProvider(provider)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return types.NewError(types.ErrUpstreamError, msg).
			WithHTTPStatus(status).
			WithRetryable(true).
			WithProvider(provider)
	case 529: // 模型过载
		return types.NewError(types.ErrUpstreamError, msg).
			WithHTTPStatus(status).
			WithRetryable(true).
			WithProvider(provider)
	default:
		return types.NewError(types.ErrUpstreamError, msg).
			WithHTTPStatus(status).
			WithRetryable(status >= 500).
			WithProvider(provider)
	}
}

func readErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var errResp openAIErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(data)
}
