package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/campusqa/types"
)

func TestMockProvider_Deterministic(t *testing.T) {
	t.Parallel()
	p := NewMockProvider()
	ctx := context.Background()

	first, err := p.Search(ctx, "学校地址在哪里")
	require.NoError(t, err)
	second, err := p.Search(ctx, "学校地址在哪里")
	require.NoError(t, err)

	assert.Equal(t, first, second, "同一提问必须得到同样的结果")
}

func TestMockProvider_PassageShape(t *testing.T) {
	t.Parallel()
	p := NewMockProvider()

	passages, err := p.Search(context.Background(), "图书馆开放时间")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(passages), 2)
	require.LessOrEqual(t, len(passages), 3)

	for _, passage := range passages {
		assert.Equal(t, types.OriginExternal, passage.Origin)
		assert.Equal(t, "mock", passage.Provider)
		assert.NotEmpty(t, passage.Text)
		assert.NotEmpty(t, passage.Title)
	}
}

func TestMockProvider_MajorBucket(t *testing.T) {
	t.Parallel()
	p := NewMockProvider()

	passages, err := p.Search(context.Background(), "有哪些专业")
	require.NoError(t, err)
	require.Len(t, passages, 3)
	assert.Equal(t, "专业设置概览", passages[2].Title)
}

func TestMockProvider_AdmissionsBucket(t *testing.T) {
	t.Parallel()
	p := NewMockProvider()

	passages, err := p.Search(context.Background(), "录取分数线是多少")
	require.NoError(t, err)
	require.Len(t, passages, 3)
	assert.Equal(t, "招生录取说明", passages[2].Title)
}

func TestMockProvider_GeneralBucket(t *testing.T) {
	t.Parallel()
	p := NewMockProvider()

	passages, err := p.Search(context.Background(), "食堂在哪里")
	require.NoError(t, err)
	assert.Len(t, passages, 2)
}

func TestMockProvider_RealtimeFlavor(t *testing.T) {
	t.Parallel()
	p := NewMockProvider()

	passages, err := p.Search(context.Background(), "最新的校园通知")
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	assert.Contains(t, passages[0].Text, "最新")
}
