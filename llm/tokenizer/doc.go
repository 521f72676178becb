// Package tokenizer 提供 Token 计数与按预算截断，
// tiktoken 可用时精确计数，离线环境退回 CJK 估算，用于提示词的 Token 预算管理。
package tokenizer
