package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/types"
)

// DefaultProviderTimeout 单 provider 调用的默认超时
const DefaultProviderTimeout = 30 * time.Second

// timedProvider 绑定了超时的 provider
type timedProvider struct {
	provider Provider
	timeout  time.Duration
}

// Augmenter 外部搜索聚合器。
// 并发调用所有注册的 provider，每个 provider 有独立超时；
// 任何单点失败只贡献空结果，不影响兄弟 provider，也不会
// 让 Augment 报错。输出按注册顺序分组，与到达顺序无关。
type Augmenter struct {
	providers []timedProvider
	logger    *zap.Logger
}

// NewAugmenter 创建搜索聚合器
func NewAugmenter(logger *zap.Logger) *Augmenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Augmenter{
		providers: make([]timedProvider, 0),
		logger:    logger,
	}
}

// Register 注册 provider。注册顺序即输出分组顺序。
func (a *Augmenter) Register(p Provider, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	a.providers = append(a.providers, timedProvider{provider: p, timeout: timeout})
}

// ProviderNames 按注册顺序返回 provider 标识
func (a *Augmenter) ProviderNames() []string {
	names := make([]string, len(a.providers))
	for i, tp := range a.providers {
		names[i] = tp.provider.Name()
	}
	return names
}

// Augment 并发执行所有 provider 并按注册顺序聚合结果。
// 永远不返回错误：失败的 provider 记一条 warn 后按空结果处理。
func (a *Augmenter) Augment(ctx context.Context, query string) []types.Passage {
	if len(a.providers) == 0 {
		return []types.Passage{}
	}

	// 统一做一次查询优化，所有 provider 拿到的都是补全校名后的查询
	query = OptimizeQuery(query)

	start := time.Now()

	// 每个 provider 占一个固定槽位，聚合顺序与完成顺序解耦
	slots := make([][]types.Passage, len(a.providers))

	var wg sync.WaitGroup
	for i, tp := range a.providers {
		wg.Add(1)
		go func(i int, tp timedProvider) {
			defer wg.Done()

			searchCtx, cancel := context.WithTimeout(ctx, tp.timeout)
			defer cancel()

			callStart := time.Now()
			passages, err := tp.provider.Search(searchCtx, query)
			observeProviderSearch(tp.provider.Name(), len(passages), time.Since(callStart), err)
			if err != nil {
				a.logger.Warn("search provider failed, continuing without it",
					zap.String("provider", tp.provider.Name()),
					zap.Error(err))
				return
			}
			slots[i] = passages
		}(i, tp)
	}
	wg.Wait()

	merged := make([]types.Passage, 0)
	for _, slot := range slots {
		merged = append(merged, slot...)
	}

	a.logger.Debug("search augmentation completed",
		zap.Int("providers", len(a.providers)),
		zap.Int("passages", len(merged)),
		zap.Duration("duration", time.Since(start)))

	return merged
}
