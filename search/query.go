package search

import "strings"

// CollegeName 查询优化时补全的学校全称
const CollegeName = "江西工业工程职业技术学院"

// queryStopwords 提问中的客套词和语气词，对搜索没有区分度
var queryStopwords = []string{
	"请问", "麻烦问一下", "我想知道", "我想问", "你知道",
	"告诉我", "帮我查", "一下", "是不是", "吗", "呢", "啊", "呀",
}

// realtimeKeywords 时效性关键词，命中说明答案依赖最新信息
var realtimeKeywords = []string{
	"最新", "现在", "今天", "今年", "近期", "最近",
	"报名", "截止", "通知", "公告", "新闻", "实时",
}

// OptimizeQuery 优化搜索查询。
// 剥掉客套词后若查询未提及学校，则补全学校全称，
// 避免外部搜索返回其他院校的结果。全部剥空时退回原始提问。
func OptimizeQuery(question string) string {
	optimized := strings.TrimSpace(question)
	for _, word := range queryStopwords {
		optimized = strings.ReplaceAll(optimized, word, "")
	}
	optimized = strings.TrimSpace(optimized)

	if optimized == "" {
		optimized = strings.TrimSpace(question)
	}

	if !strings.Contains(optimized, CollegeName) {
		optimized = CollegeName + " " + optimized
	}

	return optimized
}

// IsRealtimeQuery 判断提问是否依赖时效性信息。
// 只影响搜索措辞和缓存策略，与响应里的 is_real_time 无关。
func IsRealtimeQuery(question string) bool {
	for _, word := range realtimeKeywords {
		if strings.Contains(question, word) {
			return true
		}
	}
	return false
}
