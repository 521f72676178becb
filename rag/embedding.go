package rag

import (
	"crypto/md5"
	"encoding/binary"
	"math"
	"math/rand"
)

// Embedder 将文本映射为稠密向量
type Embedder interface {
	// Embed 生成文本的嵌入向量
	Embed(text string) []float64

	// Dimension 向量维度
	Dimension() int
}

// HashEmbedder 基于哈希种子的确定性嵌入器。
// 用文本的 MD5 摘要作为伪随机种子生成单位向量，
// 相同文本永远得到相同向量，无需外部 embedding 服务。
// 这不是语义嵌入：它只保证确定性与维度一致性，
// 适合离线知识库这种"相似问题靠措辞重合"的小规模场景。
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder 创建哈希嵌入器
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 128
	}
	return &HashEmbedder{dimension: dimension}
}

// Embed 生成确定性嵌入向量（单位长度）
func (e *HashEmbedder) Embed(text string) []float64 {
	sum := md5.Sum([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))

	rng := rand.New(rand.NewSource(seed))
	vec := make([]float64, e.dimension)

	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = v
		norm += v * v
	}

	// 归一化为单位向量，余弦相似度退化为点积
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}

	return vec
}

// Dimension 返回向量维度
func (e *HashEmbedder) Dimension() int {
	return e.dimension
}
