// Copyright (c) CampusQA Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 CampusQA HTTP API 的请求处理器实现。

# 概述

handlers 包实现了校园问答服务所有 HTTP 端点的请求处理逻辑，
包括问答、WebSocket 问答、健康检查、运行统计与缓存管理。
所有 Handler 均遵循标准 net/http 接口，通过 Swagger 注解生成 API 文档。

# 核心类型

  - AskHandler       — 问答处理器（POST /api/ask），平铺契约响应
  - WSHandler        — WebSocket 问答处理器（GET /ws/ask），按帧问答
  - HealthHandler    — 服务健康检查（/health），组件降级时仍返回 200
  - StatsHandler     — 运行统计（/api/stats）：缓存命中、索引规模、运行时长
  - AdminHandler     — 管理接口（/api/admin/clear_cache）
  - Response         — 统一 JSON 信封（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口（索引、缓存、模型配置）

# 响应约定

问答契约接口的成功响应是平铺结构 {answer, sources, is_real_time}，
降级回答同样返回 200；错误响应（400/415/5xx）与管理接口使用
Response 信封。Content-Type 校验失败返回 415，未知字段、空问题
与非法角色在进入流水线前返回 400。
*/
package handlers
