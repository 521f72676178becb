package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/campusqa/types"
)

// MockProvider 离线模拟搜索。
// 不依赖任何外部服务，根据提问关键词合成 2-3 条确定性资料，
// 同一提问永远得到同样的结果。用于开发环境和外部 API 不可用时兜底。
type MockProvider struct{}

// NewMockProvider 创建模拟搜索 provider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name 返回 provider 标识
func (p *MockProvider) Name() string {
	return "mock"
}

// Search 合成模拟搜索结果，永不失败
func (p *MockProvider) Search(ctx context.Context, query string) ([]types.Passage, error) {
	topic := strings.TrimSpace(strings.TrimPrefix(OptimizeQuery(query), CollegeName))

	timeframe := "近年"
	if IsRealtimeQuery(query) {
		timeframe = "最新"
	}

	passages := []types.Passage{
		{
			Text: fmt.Sprintf("%s官网%s公开信息：关于“%s”的具体安排以学校职能部门发布的通知为准。",
				CollegeName, timeframe, topic),
			Origin:   types.OriginExternal,
			Provider: p.Name(),
			Title:    fmt.Sprintf("%s - 学校官网信息", topic),
			URL:      "https://www.jxgcxy.edu.cn/xxgk",
		},
		{
			Text: fmt.Sprintf("校园问答社区中，“%s”是%s被频繁咨询的话题，往届学生的经验贴可以作为参考。",
				topic, timeframe),
			Origin:   types.OriginExternal,
			Provider: p.Name(),
			Title:    fmt.Sprintf("%s - 问答社区讨论", topic),
			URL:      "https://www.jxgcxy.edu.cn/wenda",
		},
	}

	switch {
	case containsAny(query, "专业", "学科", "课程"):
		passages = append(passages, types.Passage{
			Text: fmt.Sprintf("%s开设机电一体化技术、电子商务、工业机器人技术等高职专业，专业目录随当年招生计划更新。",
				CollegeName),
			Origin:   types.OriginExternal,
			Provider: p.Name(),
			Title:    "专业设置概览",
			URL:      "https://www.jxgcxy.edu.cn/zysz",
		})
	case containsAny(query, "招生", "录取", "分数", "报考"):
		passages = append(passages, types.Passage{
			Text: fmt.Sprintf("%s录取分数与招生计划以江西省教育考试院及学校招生就业处公布的当年数据为准。",
				CollegeName),
			Origin:   types.OriginExternal,
			Provider: p.Name(),
			Title:    "招生录取说明",
			URL:      "https://www.jxgcxy.edu.cn/zsjy",
		})
	}

	return passages, nil
}

// containsAny 判断文本是否包含任一关键词
func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
