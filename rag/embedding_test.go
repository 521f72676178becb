package rag

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	t.Parallel()
	e := NewHashEmbedder(128)

	a := e.Embed("学校地址在哪里")
	b := e.Embed("学校地址在哪里")

	require.Len(t, a, 128)
	assert.Equal(t, a, b, "相同文本必须得到相同向量")
}

func TestHashEmbedder_DifferentTexts(t *testing.T) {
	t.Parallel()
	e := NewHashEmbedder(128)

	a := e.Embed("学校地址在哪里")
	b := e.Embed("图书馆开放时间")

	assert.NotEqual(t, a, b, "不同文本应得到不同向量")

	// 不相关文本的余弦相似度应远低于检索阈值
	assert.Less(t, cosineSimilarity(a, b), 0.3)
}

func TestHashEmbedder_UnitNorm(t *testing.T) {
	t.Parallel()
	e := NewHashEmbedder(64)

	vec := e.Embed("奖学金申请条件")

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestHashEmbedder_ExactMatchScoresOne(t *testing.T) {
	t.Parallel()
	e := NewHashEmbedder(128)

	a := e.Embed("就业指导中心联系方式")
	b := e.Embed("就业指导中心联系方式")

	assert.InDelta(t, 1.0, cosineSimilarity(a, b), 1e-9)
}

func TestNewHashEmbedder_InvalidDimension(t *testing.T) {
	t.Parallel()

	// 非法维度回退到默认值
	assert.Equal(t, 128, NewHashEmbedder(0).Dimension())
	assert.Equal(t, 128, NewHashEmbedder(-5).Dimension())
	assert.Equal(t, 32, NewHashEmbedder(32).Dimension())
}

func TestProperty_HashEmbedder_DeterministicUnitVectors(t *testing.T) {
	e := NewHashEmbedder(128)

	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.String().Draw(rt, "text")

		first := e.Embed(text)
		second := e.Embed(text)

		require.Len(t, first, 128)
		require.Equal(t, first, second, "embedding must be deterministic")

		var norm float64
		for _, v := range first {
			norm += v * v
		}
		assert.InDelta(t, 1.0, norm, 1e-9, "embedding must be unit length")
	})
}
