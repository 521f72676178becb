package handlers

import (
	"context"
	"net/http"

	"github.com/BaSui01/campusqa/api"
	"github.com/BaSui01/campusqa/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🔧 管理接口 Handler
// =============================================================================

// CacheFlusher 清空回答缓存。
type CacheFlusher interface {
	Clear(ctx context.Context) error
}

// AdminHandler 管理接口处理器。
// flusher 在缓存未启用时传 nil，清空请求返回 cleared=false。
type AdminHandler struct {
	flusher CacheFlusher
	logger  *zap.Logger
}

// NewAdminHandler 创建管理接口处理器
func NewAdminHandler(flusher CacheFlusher, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		flusher: flusher,
		logger:  logger,
	}
}

// HandleClearCache 处理 /api/admin/clear_cache 请求
// @Summary 清空回答缓存
// @Description 清空全部已缓存的回答
// @Tags 管理
// @Produce json
// @Success 200 {object} Response{data=api.ClearCacheResponse} "清空结果"
// @Failure 503 {object} Response "缓存不可达"
// @Router /api/admin/clear_cache [post]
func (h *AdminHandler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest,
			"method not allowed", h.logger)
		return
	}

	if h.flusher == nil {
		WriteSuccess(w, api.ClearCacheResponse{Cleared: false})
		return
	}

	if err := h.flusher.Clear(r.Context()); err != nil {
		apiErr := types.NewError(types.ErrCacheUnavailable, "failed to clear answer cache").
			WithCause(err).
			WithRetryable(true)
		WriteError(w, apiErr, h.logger)
		return
	}

	h.logger.Info("answer cache cleared by admin request")
	WriteSuccess(w, api.ClearCacheResponse{Cleared: true})
}
