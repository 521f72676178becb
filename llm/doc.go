// 版权所有 2025 CampusQA Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供大语言模型接入层。

# 概述

本包封装 SiliconFlow 的 OpenAI 兼容聊天补全端点，对上层暴露统一的
请求与响应模型，并把上游 HTTP 状态映射为带重试性标注的流水线错误。

你可以使用它完成以下典型场景：

- 带超时边界的单次聊天补全调用。
- 依据错误重试性做瞬时失败补偿（llm/retry 子包）。
- 提示词 Token 预算管理（llm/tokenizer 子包）。

# 核心接口

  - [Client]：聊天补全客户端接口，提供 Complete / Name
  - [SiliconFlowClient]：默认实现，DeepSeek-R1 蒸馏模型，
    自动剥离推理模型输出中的 <think> 片段

# 错误语义

401/403 鉴权失败、400 参数错误不可重试；429 限流、5xx、超时可重试。
可重试性写入 types.Error 的 Retryable 字段，由重试器统一判定。
*/
package llm
