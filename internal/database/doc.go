// Copyright (c) CampusQA Authors.
// Licensed under the MIT License.

/*
Package database 提供基于 GORM 的数据库连接池管理，内部专用。

# 概述

本包通过 PoolManager 封装 GORM 与 database/sql 的连接池配置，
统一管理知识库数据库的连接生命周期、空闲回收与最大连接数限制。
后台健康检查定时探活，正常时把连接数快照上报 Prometheus，
异常时通过 zap 日志输出诊断信息。

# 核心类型

  - PoolManager：连接池管理器，持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Ping()、Stats()、Close() 等生命周期方法。
  - PoolConfig：连接池配置，包含最大空闲连接数、最大打开连接数、
    连接最大生命周期、空闲超时与健康检查间隔。
  - PoolStats：友好格式的连接池统计信息，供状态接口输出。
*/
package database
