package qa

import (
	"sort"

	"github.com/BaSui01/campusqa/types"
)

// MergePassages 将本地检索与外部搜索的段落合并为最终候选列表。
//
// 合并顺序：本地段落按相似度降序排在最前（本地知识库置信度最高），
// 其后是外部段落，保持增强器的输出顺序（即 provider 配置顺序）。
// 在此顺序上按 IdentityKey 去重，首次出现者保留：本地与外部命中
// 同一来源时本地胜出，多个外部 provider 命中同一来源时配置顺序
// 靠前者胜出。幸存段落按原顺序输出，总数不超过 maxSources
// （maxSources <= 0 表示不限制）。
//
// 纯函数：不修改入参切片，不产生任何副作用。
func MergePassages(local, external []types.Passage, maxSources int) []types.Passage {
	sortedLocal := make([]types.Passage, len(local))
	copy(sortedLocal, local)
	sort.SliceStable(sortedLocal, func(i, j int) bool {
		return sortedLocal[i].Score > sortedLocal[j].Score
	})

	ordered := make([]types.Passage, 0, len(sortedLocal)+len(external))
	ordered = append(ordered, sortedLocal...)
	ordered = append(ordered, external...)

	seen := make(map[string]struct{}, len(ordered))
	survivors := make([]types.Passage, 0, len(ordered))
	for _, p := range ordered {
		key := p.IdentityKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		survivors = append(survivors, p)
		if maxSources > 0 && len(survivors) >= maxSources {
			break
		}
	}
	return survivors
}

// MergeSources 返回合并后幸存段落对应的引用列表，与 MergePassages
// 一一对应。需要段落正文时（如提示词构建）使用 MergePassages。
func MergeSources(local, external []types.Passage, maxSources int) []types.Source {
	return types.SourcesFromPassages(MergePassages(local, external, maxSources))
}
