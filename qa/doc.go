// Copyright (c) CampusQA Authors.
// Licensed under the MIT License.

/*
Package qa 实现校园问答的核心流水线。

# 概述

qa 包把一个问题加工成最终回答：本地知识检索与外部搜索增强并行
执行，结果按置信度合并去重，交给大模型合成回答；模型不可用时
由确定性的降级模板兜底，保证调用方永远拿到非空回答。

# 核心类型

  - Pipeline         — 流水线编排：缓存、并发合流、检索/搜索扇出、合成与降级
  - Synthesizer      — 提示词组装 + 模型调用 + 有界重试
  - PromptBuilder    — 人设、历史与资料的消息渲染（含 token 预算截断）
  - SynthesisRequest — 单次合成的完整输入，按请求新建
  - MergePassages    — 本地降序 + 外部按配置顺序的合并去重算法
  - FallbackAnswer   — 关键词分类的降级模板回答

# 失败语义

本地检索故障收敛为零条本地段落；单个搜索 provider 的失败不影响
其余 provider；模型超时、重试耗尽或空回答统一转入降级路径并标记
Degraded=true。降级回答不写缓存。
*/
package qa
