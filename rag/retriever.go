package rag

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/types"
)

// ProviderLocalKB 本地知识库的来源标识
const ProviderLocalKB = "local_kb"

// RetrieverConfig 检索器配置
type RetrieverConfig struct {
	// 相似度阈值，低于该值的结果被丢弃
	MinScore float64 `json:"min_score"`
}

// Retriever 本地知识库检索器。
// 将问题嵌入为向量后在索引中查找 Top-K 相似文档，
// 结果按相似度降序排列。索引故障以 RETRIEVAL_UNAVAILABLE
// 错误上报，由调用方决定降级策略。
type Retriever struct {
	config   RetrieverConfig
	embedder Embedder
	index    VectorIndex
	logger   *zap.Logger
}

// NewRetriever 创建检索器
func NewRetriever(config RetrieverConfig, embedder Embedder, index VectorIndex, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		config:   config,
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// Retrieve 检索与问题相关的本地段落
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]types.Passage, error) {
	if topK < 1 {
		return nil, types.NewError(types.ErrInvalidRequest, "topK must be >= 1")
	}

	start := time.Now()
	queryEmbedding := r.embedder.Embed(question)

	results, err := r.index.Search(ctx, queryEmbedding, topK)
	if err != nil {
		return nil, types.NewError(types.ErrRetrievalUnavailable, "vector index search failed").
			WithCause(err).
			WithProvider(ProviderLocalKB)
	}

	passages := make([]types.Passage, 0, len(results))
	for _, res := range results {
		if res.Score < r.config.MinScore {
			continue
		}
		passages = append(passages, types.Passage{
			Text:     res.Document.Content,
			Origin:   types.OriginLocal,
			Provider: ProviderLocalKB,
			Score:    res.Score,
			Title:    res.Document.Title,
			URL:      res.Document.URL,
		})
	}

	r.logger.Debug("local retrieval completed",
		zap.Int("candidates", len(results)),
		zap.Int("passages", len(passages)),
		zap.Duration("duration", time.Since(start)))

	return passages, nil
}

// Index 将文档嵌入后写入索引。
// 已携带向量的文档原样入库；否则以标题（知识库的标准问法）
// 为嵌入输入，标题为空时退回正文。
func (r *Retriever) Index(ctx context.Context, docs []Document) error {
	for i := range docs {
		if docs[i].Embedding != nil {
			continue
		}
		text := docs[i].Title
		if text == "" {
			text = docs[i].Content
		}
		docs[i].Embedding = r.embedder.Embed(text)
	}
	return r.index.Add(ctx, docs...)
}

// Count 返回索引中的文档数量
func (r *Retriever) Count(ctx context.Context) (int, error) {
	return r.index.Count(ctx)
}
