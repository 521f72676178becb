// Copyright (c) CampusQA Authors.
// Licensed under the MIT License.

/*
Package api 定义 CampusQA HTTP API 的请求与响应类型。

# 概述

api 包承载对外契约：问答请求/响应的平铺结构、运行统计响应
以及历史轮数上限等边界常量。请求类型自带校验与到流水线
查询的转换，响应类型负责把领域结果映射为线上格式。

# 契约要点

  - AskRequest.Validate  — 空问题与非法角色在 HTTP 边界拒绝
  - AskRequest.ToQuery   — 历史超过 MaxHistoryTurns 时截取最近轮次
  - SourceEntry.URL      — 指针字段：无链接的本地资料序列化为 null
  - NewAskResponse       — Sources 永不为 nil，空结果输出 []
*/
package api
