// Copyright (c) CampusQA Authors.
// Licensed under the MIT License.

/*
Package store 提供基于 GORM 的知识库文档存取，内部专用。

# 概述

知识库以 knowledge_documents 表存放常见问题与标准答案，
服务启动时从这里加载全部文档构建内存向量索引。表为空时
Seed 写入内置校园语料；数据库不可用时 BuiltinCorpus 仍可
直接为索引供数，服务照常启动。

# 核心类型

  - Document：知识库文档模型，DocID 为跨库稳定的 UUID。
  - Store：存取层，提供 AutoMigrate、Seed、LoadAll、Count，
    种子写入经由带指数退避的事务重试。
  - BuiltinCorpus：内置的十条校园常见问答。

支持 sqlite（默认，纯 Go 驱动）、postgres 与 mysql 三种方言，
查询耗时通过可选的 metrics.Collector 上报。
*/
package store
