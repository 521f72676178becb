package api

import (
	"strings"

	"github.com/BaSui01/campusqa/types"
)

// =============================================================================
// 问答接口类型
// =============================================================================

// MaxHistoryTurns 单次请求携带的历史轮数上限，超出部分取最近的轮次。
const MaxHistoryTurns = 20

// HistoryTurn 对话历史中的一轮。
// @Description 对话历史条目，role 仅允许 user 或 assistant
type HistoryTurn struct {
	// 角色：user 或 assistant
	Role string `json:"role" example:"user"`
	// 该轮的文本内容
	Content string `json:"content" example:"学校有哪些专业？"`
}

// AskRequest 问答请求。
// @Description 问答请求结构
type AskRequest struct {
	// 用户问题，去除首尾空白后不能为空
	Question string `json:"question" example:"学校地址在哪里" binding:"required"`
	// 对话历史，可选，默认为空，最多保留最近 20 轮
	ChatHistory []HistoryTurn `json:"chat_history,omitempty"`
}

// Validate 校验请求：问题非空、历史角色合法。
// 返回的错误是 *types.Error，HTTP 层据此写 400。
func (r *AskRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return types.NewError(types.ErrInvalidRequest, "问题不能为空")
	}
	return types.ValidateHistory(r.historyMessages())
}

// ToQuery 把请求转换为流水线查询。问题去除首尾空白，
// 历史超过 MaxHistoryTurns 时只保留最近的轮次。
func (r *AskRequest) ToQuery() types.Query {
	history := r.historyMessages()
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}
	return types.Query{
		Text:    strings.TrimSpace(r.Question),
		History: history,
	}
}

func (r *AskRequest) historyMessages() []types.Message {
	if len(r.ChatHistory) == 0 {
		return nil
	}
	msgs := make([]types.Message, len(r.ChatHistory))
	for i, turn := range r.ChatHistory {
		msgs[i] = types.Message{Role: types.Role(turn.Role), Content: turn.Content}
	}
	return msgs
}

// SourceEntry 回答引用的一条资料来源。
// URL 用指针承载：没有链接的本地资料序列化为 null，而不是缺省字段。
type SourceEntry struct {
	// 资料标题
	Title string `json:"title" example:"学校简介"`
	// 资料链接，本地知识库条目可能为 null
	URL *string `json:"url"`
}

// AskResponse 问答响应。平铺结构，不包 Response 信封。
// @Description 问答响应结构
type AskResponse struct {
	// 最终回答文本，永不为空
	Answer string `json:"answer"`
	// 引用的资料来源，按合并顺序排列
	Sources []SourceEntry `json:"sources"`
	// 是否命中实时类问题（天气、新闻等需要联网的信息）
	IsRealTime bool `json:"is_real_time"`
}

// NewAskResponse 把流水线结果转换为响应体。
// Sources 永不为 nil，空结果序列化为 []。
func NewAskResponse(result types.AnswerResult) AskResponse {
	sources := make([]SourceEntry, 0, len(result.Sources))
	for _, s := range result.Sources {
		entry := SourceEntry{Title: s.Title}
		if s.URL != "" {
			url := s.URL
			entry.URL = &url
		}
		sources = append(sources, entry)
	}
	return AskResponse{
		Answer:     result.Answer,
		Sources:    sources,
		IsRealTime: result.IsRealTime,
	}
}

// =============================================================================
// 运行统计类型
// =============================================================================

// IndexStats 本地知识索引统计。
type IndexStats struct {
	// 已入库的文档数
	Documents int `json:"documents"`
}

// AnswerCacheStats 回答缓存的进程内命中统计。
type AnswerCacheStats struct {
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	TotalRequests uint64  `json:"total_requests"`
	HitRate       float64 `json:"hit_rate"`
}

// RedisStats Redis 侧统计：键数量与连接池状态。
type RedisStats struct {
	Keys           int64  `json:"keys"`
	PoolTotalConns uint32 `json:"pool_total_conns"`
	PoolIdleConns  uint32 `json:"pool_idle_conns"`
}

// StatsResponse /api/stats 响应。缓存未启用时对应字段为 null。
type StatsResponse struct {
	// 服务启动至今的秒数
	UptimeSeconds int64      `json:"uptime_seconds"`
	Index         IndexStats `json:"index"`
	// 回答缓存命中统计，缓存未启用时为 null
	AnswerCache *AnswerCacheStats `json:"answer_cache,omitempty"`
	// Redis 统计，缓存未启用或不可达时为 null
	Redis *RedisStats `json:"redis,omitempty"`
}

// ClearCacheResponse /api/admin/clear_cache 响应。
type ClearCacheResponse struct {
	// 是否实际执行了清空。缓存未启用时为 false
	Cleared bool `json:"cleared"`
}
