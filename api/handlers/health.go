package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// HealthHandler 健康检查处理器
type HealthHandler struct {
	logger    *zap.Logger
	version   string
	startTime time.Time
	checks    []HealthCheck
	mu        sync.RWMutex
}

// HealthCheck 健康检查接口
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus 健康状态响应。
// 服务存活即返回 200，组件故障只体现在 Status 与 Checks 里。
type HealthStatus struct {
	Status        string                 `json:"status"` // "healthy", "degraded"
	Timestamp     time.Time              `json:"timestamp"`
	Version       string                 `json:"version,omitempty"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	Checks        map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		version:   version,
		startTime: time.Now(),
		checks:    make([]HealthCheck, 0),
	}
}

// RegisterCheck 注册健康检查
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleHealth 处理 /health 请求。
// 进程存活即 200：组件降级不是不可用，问答在降级路径下仍能作答，
// 所以组件故障只写进响应体，不改状态码。
// @Summary 健康检查
// @Description 返回服务状态与各组件检查结果
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务状态"
// @Router /health [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:        "healthy",
		Timestamp:     time.Now(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
	if len(checks) > 0 {
		status.Checks = make(map[string]CheckResult, len(checks))
	}

	for _, check := range checks {
		start := time.Now()
		err := check.Check(ctx)
		latency := time.Since(start)

		result := CheckResult{
			Status:  "pass",
			Latency: latency.String(),
		}

		if err != nil {
			result.Status = "fail"
			result.Message = err.Error()
			status.Status = "degraded"

			h.logger.Warn("health check failed",
				zap.String("check", check.Name()),
				zap.Error(err),
				zap.Duration("latency", latency),
			)
		}

		status.Checks[check.Name()] = result
	}

	WriteJSON(w, http.StatusOK, status)
}

// =============================================================================
// 🔧 内置健康检查实现
// =============================================================================

// ComponentCheck 用函数适配 HealthCheck 接口的通用组件检查。
type ComponentCheck struct {
	name string
	fn   func(ctx context.Context) error
}

// NewComponentCheck 创建组件检查
func NewComponentCheck(name string, fn func(ctx context.Context) error) *ComponentCheck {
	return &ComponentCheck{
		name: name,
		fn:   fn,
	}
}

func (c *ComponentCheck) Name() string {
	return c.name
}

func (c *ComponentCheck) Check(ctx context.Context) error {
	return c.fn(ctx)
}
