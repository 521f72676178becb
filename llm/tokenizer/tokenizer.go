package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/types"
)

// defaultEncoding 计数用的 BPE 编码。
// DeepSeek 蒸馏系列没有公开的 tiktoken 词表，cl100k_base
// 对中英混排的偏差在预算场景可以接受。
const defaultEncoding = "cl100k_base"

// Tokenizer 统一的 token 计数器。
// 首次使用时惰性初始化 tiktoken（可能需要下载编码数据），
// 初始化失败则永久退回 CJK 感知的字符估算，计数能力不中断。
type Tokenizer struct {
	logger *zap.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken // nil 表示走估算路径
}

// New 创建 token 计数器
func New(logger *zap.Logger) *Tokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tokenizer{logger: logger}
}

func (t *Tokenizer) init() {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(defaultEncoding)
		if err != nil {
			t.logger.Warn("tiktoken unavailable, falling back to character estimation",
				zap.String("encoding", defaultEncoding),
				zap.Error(err))
			return
		}
		t.enc = enc
	})
}

// CountTokens 返回文本的 token 数
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	t.init()
	if t.enc != nil {
		return len(t.enc.Encode(text, nil, nil))
	}
	return estimateTokens(text)
}

// CountMessages 返回消息列表的总 token 数，
// 含每条消息的角色标记、分隔符开销。
func (t *Tokenizer) CountMessages(messages []types.Message) int {
	t.init()

	total := 0
	for _, msg := range messages {
		// 每条消息的开销: <|start|>role\n content<|end|>\n
		total += 4
		if t.enc != nil {
			total += len(t.enc.Encode(msg.Content, nil, nil))
			total += len(t.enc.Encode(string(msg.Role), nil, nil))
		} else {
			total += estimateTokens(msg.Content) + 1
		}
	}
	total += 3 // 会话结尾开销
	return total
}

// Truncate 把文本截断到给定 token 预算内
func (t *Tokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}

	t.init()
	if t.enc != nil {
		tokens := t.enc.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			return text
		}
		return t.enc.Decode(tokens[:maxTokens])
	}

	// 估算路径：按预算逐字累计
	budget := float64(maxTokens)
	out := make([]rune, 0, len(text))
	for _, r := range text {
		budget -= runeTokenCost(r)
		if budget < 0 {
			break
		}
		out = append(out, r)
	}
	return string(out)
}

// estimateTokens 按 CJK/ASCII 比例估算 token 数。
// CJK 约 1.5 字/token，其余约 4 字/token。
func estimateTokens(text string) int {
	var cost float64
	for _, r := range text {
		cost += runeTokenCost(r)
	}

	estimated := int(cost)
	if estimated == 0 {
		estimated = 1
	}
	return estimated
}

func runeTokenCost(r rune) float64 {
	if isCJK(r) {
		return 1.0 / 1.5
	}
	return 1.0 / 4.0
}

// isCJK 判断是否 CJK 字符
func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified Ideographs
		(r >= 0x3400 && r <= 0x4DBF) || // CJK Extension A
		(r >= 0x20000 && r <= 0x2A6DF) || // CJK Extension B
		(r >= 0xF900 && r <= 0xFAFF) || // CJK Compatibility Ideographs
		(r >= 0x3000 && r <= 0x303F) || // CJK Symbols and Punctuation
		(r >= 0xFF00 && r <= 0xFFEF) // Halfwidth and Fullwidth Forms
}
