package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/types"
)

// failingIndex 总是返回错误的索引桩
type failingIndex struct{}

func (f *failingIndex) Add(ctx context.Context, docs ...Document) error {
	return errors.New("index down")
}

func (f *failingIndex) Search(ctx context.Context, queryEmbedding []float64, topK int) ([]SearchResult, error) {
	return nil, errors.New("index down")
}

func (f *failingIndex) Count(ctx context.Context) (int, error) {
	return 0, errors.New("index down")
}

func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()

	embedder := NewHashEmbedder(128)
	index := NewInMemoryIndex(zap.NewNop())
	r := NewRetriever(RetrieverConfig{MinScore: 0.3}, embedder, index, zap.NewNop())

	require.NoError(t, r.Index(context.Background(), []Document{
		{ID: "d1", Title: "学校地址在哪里", Content: "学院位于江西省萍乡市安源区建设东路268号。", URL: "https://www.jxgcxy.edu.cn/about"},
		{ID: "d2", Title: "图书馆开放时间", Content: "图书馆周一至周日 8:00-22:00 开放。"},
		{ID: "d3", Title: "奖学金申请条件", Content: "国家奖学金要求学年综合测评排名前 10%。"},
	}))

	return r
}

func TestRetriever_ExactQuestionMatch(t *testing.T) {
	t.Parallel()
	r := newTestRetriever(t)

	passages, err := r.Retrieve(context.Background(), "学校地址在哪里", 5)
	require.NoError(t, err)
	require.NotEmpty(t, passages)

	// 标准问法精确命中，得分最高的就是对应文档
	top := passages[0]
	assert.Equal(t, "学校地址在哪里", top.Title)
	assert.Contains(t, top.Text, "建设东路268号")
	assert.Equal(t, types.OriginLocal, top.Origin)
	assert.Equal(t, ProviderLocalKB, top.Provider)
	assert.Equal(t, "https://www.jxgcxy.edu.cn/about", top.URL)
	assert.InDelta(t, 1.0, top.Score, 1e-9)
}

func TestRetriever_ScoresDescending(t *testing.T) {
	t.Parallel()
	r := newTestRetriever(t)

	passages, err := r.Retrieve(context.Background(), "图书馆开放时间", 5)
	require.NoError(t, err)

	for i := 1; i < len(passages); i++ {
		assert.GreaterOrEqual(t, passages[i-1].Score, passages[i].Score)
	}
}

func TestRetriever_ThresholdFiltersUnrelated(t *testing.T) {
	t.Parallel()
	r := newTestRetriever(t)

	// 与知识库完全无关的问题：哈希嵌入互不相关，应全部低于阈值
	passages, err := r.Retrieve(context.Background(), "量子计算的最新进展", 5)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestRetriever_InvalidTopK(t *testing.T) {
	t.Parallel()
	r := newTestRetriever(t)

	_, err := r.Retrieve(context.Background(), "学校地址在哪里", 0)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestRetriever_EmptyCorpus(t *testing.T) {
	t.Parallel()

	r := NewRetriever(
		RetrieverConfig{MinScore: 0.3},
		NewHashEmbedder(128),
		NewInMemoryIndex(zap.NewNop()),
		zap.NewNop(),
	)

	passages, err := r.Retrieve(context.Background(), "学校地址在哪里", 5)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestRetriever_IndexFailure(t *testing.T) {
	t.Parallel()

	r := NewRetriever(RetrieverConfig{MinScore: 0.3}, NewHashEmbedder(128), &failingIndex{}, zap.NewNop())

	_, err := r.Retrieve(context.Background(), "学校地址在哪里", 5)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrRetrievalUnavailable))

	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, ProviderLocalKB, typed.Provider)
}

func TestRetriever_IndexEmbedsTitle(t *testing.T) {
	t.Parallel()

	embedder := NewHashEmbedder(128)
	index := NewInMemoryIndex(zap.NewNop())
	r := NewRetriever(RetrieverConfig{MinScore: 0.3}, embedder, index, zap.NewNop())

	require.NoError(t, r.Index(context.Background(), []Document{
		{ID: "d1", Title: "校医院在哪里", Content: "校医院位于学生公寓 3 栋一层。"},
	}))

	// 检索用的是标题向量，标题精确命中即得满分
	results, err := index.Search(context.Background(), embedder.Embed("校医院在哪里"), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestRetriever_IndexPreservesExistingEmbedding(t *testing.T) {
	t.Parallel()

	embedder := NewHashEmbedder(4)
	index := NewInMemoryIndex(zap.NewNop())
	r := NewRetriever(RetrieverConfig{MinScore: 0.0}, embedder, index, zap.NewNop())

	precomputed := []float64{1, 0, 0, 0}
	require.NoError(t, r.Index(context.Background(), []Document{
		{ID: "d1", Title: "自带向量", Content: "内容", Embedding: precomputed},
	}))

	results, err := index.Search(context.Background(), precomputed, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}
