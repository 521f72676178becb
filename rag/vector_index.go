package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Document 知识库文档
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	URL       string    `json:"url,omitempty"`
	Embedding []float64 `json:"-"`
}

// VectorIndex 向量索引接口
type VectorIndex interface {
	// 添加文档
	Add(ctx context.Context, docs ...Document) error

	// 搜索相似文档
	Search(ctx context.Context, queryEmbedding []float64, topK int) ([]SearchResult, error)

	// 获取文档数量
	Count(ctx context.Context) (int, error)
}

// SearchResult 向量搜索结果
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// ====== 内存向量索引（暴力余弦搜索，适合千级文档规模）======

// InMemoryIndex 内存向量索引
type InMemoryIndex struct {
	documents []Document
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewInMemoryIndex 创建内存向量索引
func NewInMemoryIndex(logger *zap.Logger) *InMemoryIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryIndex{
		documents: make([]Document, 0),
		logger:    logger,
	}
}

// Add 添加文档
func (idx *InMemoryIndex) Add(ctx context.Context, docs ...Document) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, doc := range docs {
		if doc.Embedding == nil {
			return fmt.Errorf("document %s has no embedding", doc.ID)
		}
		idx.documents = append(idx.documents, doc)
	}

	idx.logger.Info("documents added to vector index",
		zap.Int("count", len(docs)),
		zap.Int("total", len(idx.documents)))

	return nil
}

// Search 搜索相似文档
func (idx *InMemoryIndex) Search(ctx context.Context, queryEmbedding []float64, topK int) ([]SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.documents) == 0 {
		return []SearchResult{}, nil
	}

	// 计算所有文档的相似度
	results := make([]SearchResult, 0, len(idx.documents))

	for _, doc := range idx.documents {
		if doc.Embedding == nil {
			continue
		}

		results = append(results, SearchResult{
			Document: doc,
			Score:    cosineSimilarity(queryEmbedding, doc.Embedding),
		})
	}

	// 按相似度降序排序
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	// 返回 Top-K
	if topK > len(results) {
		topK = len(results)
	}

	return results[:topK], nil
}

// Count 返回文档数量
func (idx *InMemoryIndex) Count(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.documents), nil
}

// cosineSimilarity 计算余弦相似度
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
