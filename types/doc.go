// Copyright (c) CampusQA Authors.
// Licensed under the MIT License.

/*
Package types 提供 campusqa 服务的全局共享类型定义。

# 概述

types 是服务最底层的公共包，不依赖任何内部包，为 rag、search、qa、llm、
api 等上层模块提供统一的类型契约。所有跨包共享的结构体、枚举和错误码
均定义于此，以避免循环依赖。

# 核心类型

  - Query             — 一次问答请求（问题文本 + 对话历史）
  - Message           — 对话消息（Role + Content）
  - Passage           — 检索/搜索得到的文本片段（来源、provider、相关度分值）
  - Source            — 面向用户的引用来源（标题 + 可选链接，按 IdentityKey 去重）
  - AnswerResult      — 最终回答（答案、来源列表、IsRealTime、Degraded 标记）
  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记

# 主要能力

  - 错误工具链：IsRetryable / GetErrorCode / IsErrorCode
  - 来源派生：Passage.IdentityKey 与 SourceFromPassage 保证去重键稳定
  - 历史校验：ValidateHistory 在进入流水线前拒绝非法角色
*/
package types
