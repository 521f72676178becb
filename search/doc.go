// Copyright (c) CampusQA Authors.
// Licensed under the MIT License.

/*
# 概述

Package search 提供外部搜索增强。

无论本地检索质量如何，流水线都会调用本包补充外部资料：
外部搜索是对本地知识库的增益而非回退。

# 核心类型

  - Provider — 搜索后端接口（Search / Name）
  - MockProvider — 离线模拟数据，确定性结果，永不失败
  - GuguDataProvider — 咕咕数据专业元数据 API
  - SerpAPIProvider — SerpAPI 学术搜索（Google Scholar 引擎）
  - Augmenter — 并发聚合器，goroutine-per-provider + 独立超时

# 失败语义

单个 provider 超时、非 2xx、响应畸形都只产生一条 warn 日志和
一个空槽位。Augment 永不返回错误，结果按注册顺序分组。
*/
package search
