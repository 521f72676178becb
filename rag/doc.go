// Copyright 2025-2026 CampusQA Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package rag 提供校园知识库的本地向量检索。

该包覆盖检索侧的三个阶段：文本嵌入、向量索引、相似度检索，
并把命中结果映射为统一的 types.Passage 供回答合成使用。

# 核心接口/类型

  - Embedder — 文本嵌入接口（默认 HashEmbedder：MD5 种子确定性向量）
  - VectorIndex — 向量索引接口（Add / Search / Count）
  - InMemoryIndex — 内存实现，暴力余弦搜索，适合千级文档规模
  - Retriever — 检索器，嵌入查询 → Top-K 搜索 → 阈值过滤
  - Document — 知识库文档（标题即标准问法，正文即答案）

# 主要能力

  - 确定性嵌入：相同文本永远得到相同单位向量，无外部服务依赖
  - 阈值过滤：低于 MinScore 的命中被丢弃，避免无关资料污染提示词
  - 故障隔离：索引故障以 RETRIEVAL_UNAVAILABLE 上报，调用方按零结果降级
*/
package rag
