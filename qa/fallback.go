package qa

import (
	"strings"

	"github.com/BaSui01/campusqa/types"
)

// FallbackCategory 是降级回答的问题粗分类。
type FallbackCategory string

const (
	CategoryLocation   FallbackCategory = "location"
	CategoryAdmissions FallbackCategory = "admissions"
	CategoryContact    FallbackCategory = "contact"
	CategoryGeneral    FallbackCategory = "general"
)

// 分类关键词表，匹配按表序进行，首个命中的类别生效。
var fallbackKeywords = []struct {
	category FallbackCategory
	words    []string
}{
	{CategoryLocation, []string{"地址", "在哪", "位置", "怎么走", "路线", "校区"}},
	{CategoryAdmissions, []string{"招生", "录取", "分数", "报考", "专业", "学费"}},
	{CategoryContact, []string{"电话", "联系", "咨询", "邮箱", "招生办"}},
}

var fallbackTemplates = map[FallbackCategory]string{
	CategoryLocation: "江西工业工程职业技术学院位于江西省萍乡市安源区建设东路268号。" +
		"乘坐公交可在学院站下车，步行即到。如需更详细的到校路线，建议提前联系学校办公室确认。",
	CategoryAdmissions: "学校是一所公办全日制普通高等职业院校。各专业的招生计划、录取分数线和学费标准" +
		"以当年省教育考试院公布的信息及学校招生简章为准。建议拨打招生就业处电话 0799-6351234，" +
		"或关注学校官网获取最新招生信息。",
	CategoryContact: "学校联系方式：招生就业处电话 0799-6351234，办公地点在行政楼2楼；" +
		"学校地址：江西省萍乡市安源区建设东路268号。建议在工作日办公时间拨打。",
	CategoryGeneral: "抱歉，智能问答服务暂时降级，未能为这个问题生成完整回答。" +
		"请稍后重试，或直接联系学校相关部门咨询（招生就业处电话 0799-6351234）。",
}

// ClassifyQuestion 按关键词把问题归入粗分类，无命中时返回 general。
// 确定性函数，不做任何网络或模型调用。
func ClassifyQuestion(question string) FallbackCategory {
	for _, entry := range fallbackKeywords {
		for _, w := range entry.words {
			if strings.Contains(question, w) {
				return entry.category
			}
		}
	}
	return CategoryGeneral
}

// FallbackAnswer 在模型不可用时产出预置模板回答。永不为空，永不出错；
// 已合并的引用列表原样附带，externalPresent 决定 is_real_time。
func FallbackAnswer(question string, sources []types.Source, externalPresent bool) types.AnswerResult {
	category := ClassifyQuestion(question)
	return types.AnswerResult{
		Answer:     fallbackTemplates[category],
		Sources:    sources,
		IsRealTime: externalPresent,
		Degraded:   true,
	}
}
