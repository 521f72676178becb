// Copyright (c) CampusQA Authors.
// Licensed under the MIT License.

/*
Package cache 提供基于 Redis 的回答缓存，内部专用。

# 概述

本包封装 go-redis 客户端，为问答流水线缓存最终回答，避免热门
问题重复触发检索与模型调用。Manager 负责连接生命周期管理，
AnswerCache 在其上实现流水线约定的回答缓存契约。

# 核心类型

  - Manager：缓存管理器，持有 Redis 客户端与连接池配置，
    提供 Get/Set 与 GetJSON/SetJSON 读写、Flush 清空、
    后台健康检查与优雅关闭。
  - AnswerCache：回答缓存，按缓存键存取 AnswerResult，
    未命中返回 (nil, nil)，并维护进程内命中计数。
  - Stats / AnswerStats：Redis 侧与进程内两级统计信息。

# 错误语义

键不存在收敛为 ErrCacheMiss 哨兵错误，IsCacheMiss 用于判断；
其余基础设施故障原样上抛，由调用方按未命中降级处理。
*/
package cache
