package search

import (
	"context"

	"github.com/BaSui01/campusqa/types"
)

// Provider 外部搜索后端接口。
// 实现可以封装模拟数据、专业元数据 API、学术搜索 API 等。
type Provider interface {
	// Search 执行搜索并返回外部资料段落
	Search(ctx context.Context, query string) ([]types.Passage, error)

	// Name 返回 provider 标识
	Name() string
}
