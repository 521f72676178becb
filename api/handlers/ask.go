package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BaSui01/campusqa/api"
	"github.com/BaSui01/campusqa/types"
	"go.uber.org/zap"
)

// =============================================================================
// 💬 问答接口 Handler
// =============================================================================

// Answerer 问答流水线入口。校验失败返回 *types.Error，
// 其余故障在实现内部降级，不经 error 通道外露。
type Answerer interface {
	Answer(ctx context.Context, query types.Query) (types.AnswerResult, error)
}

// AskHandler 问答接口处理器
type AskHandler struct {
	answerer Answerer
	logger   *zap.Logger
}

// NewAskHandler 创建问答处理器
func NewAskHandler(answerer Answerer, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		answerer: answerer,
		logger:   logger,
	}
}

// HandleAsk 处理问答请求
// @Summary 校园问答
// @Description 提交一个问题与可选对话历史，返回回答与资料来源
// @Tags 问答
// @Accept json
// @Produce json
// @Param request body api.AskRequest true "问答请求"
// @Success 200 {object} api.AskResponse "问答响应（含降级回答）"
// @Failure 400 {object} Response "无效请求"
// @Failure 415 {object} Response "Content-Type 错误"
// @Router /api/ask [post]
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest,
			"method not allowed", h.logger)
		return
	}

	// 验证 Content-Type
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	// 解码请求
	var req api.AskRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	// 进入流水线前完成校验
	if err := req.Validate(); err != nil {
		writeAskError(w, err, h.logger)
		return
	}

	start := time.Now()
	result, err := h.answerer.Answer(r.Context(), req.ToQuery())
	if err != nil {
		writeAskError(w, err, h.logger)
		return
	}

	h.logger.Info("question answered",
		zap.String("question", preview(req.Question, 32)),
		zap.Int("sources", len(result.Sources)),
		zap.Bool("is_real_time", result.IsRealTime),
		zap.Bool("degraded", result.Degraded),
		zap.Duration("duration", time.Since(start)),
	)

	// 契约响应是平铺结构，降级回答同样走 200
	WriteJSON(w, http.StatusOK, api.NewAskResponse(result))
}

// writeAskError 把流水线错误映射到信封响应。
// 非 *types.Error 的错误一律按内部错误处理。
func writeAskError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var apiErr *types.Error
	if errors.As(err, &apiErr) {
		WriteError(w, apiErr, logger)
		return
	}
	WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError,
		"internal error", logger)
}

// preview 按 rune 截断日志中的长文本。
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
