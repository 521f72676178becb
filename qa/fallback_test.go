package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/campusqa/types"
)

func TestClassifyQuestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		question string
		want     FallbackCategory
	}{
		{"地址问题", "学校地址在哪里", CategoryLocation},
		{"路线问题", "从火车站到学校怎么走", CategoryLocation},
		{"校区问题", "学校有几个校区", CategoryLocation},
		{"招生问题", "今年的招生计划是什么", CategoryAdmissions},
		{"分数问题", "去年录取分数线多少", CategoryAdmissions},
		{"学费问题", "学费一年多少钱", CategoryAdmissions},
		{"电话问题", "学校的电话号码", CategoryContact},
		{"邮箱问题", "怎么发邮箱给教务处", CategoryContact},
		{"无关问题", "今天天气怎么样", CategoryGeneral},
		{"空问题", "", CategoryGeneral},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassifyQuestion(tt.question))
		})
	}
}

func TestClassifyQuestion_CategoryOrderWins(t *testing.T) {
	t.Parallel()

	// 同时命中 location 与 contact 关键词时，表序靠前的类别生效
	assert.Equal(t, CategoryLocation, ClassifyQuestion("学校地址和联系电话"))
	// "招生办电话" 同时含招生与电话，归入 admissions，其模板同样给出电话
	assert.Equal(t, CategoryAdmissions, ClassifyQuestion("招生办电话是多少"))
}

func TestFallbackAnswer_LocationContainsAddress(t *testing.T) {
	t.Parallel()

	got := FallbackAnswer("学校地址在哪里", nil, false)

	assert.True(t, got.Degraded)
	assert.False(t, got.IsRealTime)
	assert.Contains(t, got.Answer, "江西省萍乡市安源区建设东路268号")
}

func TestFallbackAnswer_ContactContainsPhone(t *testing.T) {
	t.Parallel()

	got := FallbackAnswer("怎么联系学校", nil, false)
	assert.Contains(t, got.Answer, "0799-6351234")
}

func TestFallbackAnswer_GeneralMentionsDegradation(t *testing.T) {
	t.Parallel()

	got := FallbackAnswer("宇宙的尽头是什么", nil, false)
	assert.Contains(t, got.Answer, "降级")
	assert.NotEmpty(t, got.Answer)
}

func TestFallbackAnswer_CarriesSourcesAndRealtime(t *testing.T) {
	t.Parallel()

	sources := []types.Source{
		{Title: "学校简介", IdentityKey: "学校简介"},
		{Title: "官网信息", IdentityKey: "https://example.com", URL: "https://example.com"},
	}

	got := FallbackAnswer("学校地址在哪里", sources, true)

	assert.True(t, got.Degraded)
	assert.True(t, got.IsRealTime, "存在外部来源时降级回答仍是实时的")
	require.Len(t, got.Sources, 2)
	assert.Equal(t, "学校简介", got.Sources[0].Title)
}

func TestFallbackAnswer_Deterministic(t *testing.T) {
	t.Parallel()

	first := FallbackAnswer("录取分数线", nil, false)
	second := FallbackAnswer("录取分数线", nil, false)
	assert.Equal(t, first, second)
}

func TestFallbackAnswer_AllCategoriesNonEmpty(t *testing.T) {
	t.Parallel()

	for category, tpl := range fallbackTemplates {
		assert.NotEmpty(t, tpl, "类别 %s 的模板不能为空", category)
	}
}
