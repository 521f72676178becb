package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/BaSui01/campusqa/api"
	"github.com/BaSui01/campusqa/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🔌 WebSocket 问答 Handler
// =============================================================================

// wsReadLimit 单帧读取上限。默认 32KB 装不下带满额历史的请求帧。
const wsReadLimit = 1 << 17

// WSHandler WebSocket 问答处理器。
// 每个连接串行处理问答帧：客户端发 {question, chat_history}，
// 服务端回平铺的问答响应帧，校验规则与 POST /api/ask 一致。
type WSHandler struct {
	answerer       Answerer
	originPatterns []string
	logger         *zap.Logger
}

// NewWSHandler 创建 WebSocket 问答处理器。
// originPatterns 为空时只允许同源握手。
func NewWSHandler(answerer Answerer, originPatterns []string, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		answerer:       answerer,
		originPatterns: originPatterns,
		logger:         logger,
	}
}

// HandleWS 处理 /ws/ask 连接
// @Summary WebSocket 问答
// @Description 升级为 WebSocket，按帧问答；协议违例时关闭连接
// @Tags 问答
// @Router /ws/ask [get]
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(wsReadLimit)
	ctx := r.Context()

	h.logger.Debug("websocket session opened", zap.String("remote", r.RemoteAddr))

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			// 对端关闭或连接失效
			h.logger.Debug("websocket session closed", zap.Error(err))
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "text frames only")
			return
		}

		// 与 POST /api/ask 相同的严格解码：未知字段即协议违例
		var req api.AskRequest
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			conn.Close(websocket.StatusInvalidFramePayloadData, "invalid ask frame")
			return
		}

		if err := req.Validate(); err != nil {
			if writeErr := wsjson.Write(ctx, conn, errorFrame(err)); writeErr != nil {
				return
			}
			continue
		}

		start := time.Now()
		result, err := h.answerer.Answer(ctx, req.ToQuery())
		if err != nil {
			if writeErr := wsjson.Write(ctx, conn, errorFrame(err)); writeErr != nil {
				return
			}
			continue
		}

		h.logger.Info("question answered",
			zap.String("transport", "websocket"),
			zap.String("question", preview(req.Question, 32)),
			zap.Int("sources", len(result.Sources)),
			zap.Bool("is_real_time", result.IsRealTime),
			zap.Bool("degraded", result.Degraded),
			zap.Duration("duration", time.Since(start)),
		)

		if err := wsjson.Write(ctx, conn, api.NewAskResponse(result)); err != nil {
			return
		}
	}
}

// errorFrame 把校验错误转换为信封错误帧，对应 HTTP 侧的 400 响应体。
func errorFrame(err error) Response {
	info := &ErrorInfo{
		Code:    string(types.ErrInternalError),
		Message: "internal error",
	}
	var apiErr *types.Error
	if errors.As(err, &apiErr) {
		info.Code = string(apiErr.Code)
		info.Message = apiErr.Message
		info.Retryable = apiErr.Retryable
	}
	return Response{
		Success:   false,
		Error:     info,
		Timestamp: time.Now(),
	}
}
