package qa

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/llm/tokenizer"
	"github.com/BaSui01/campusqa/types"
)

// systemPersona 固定人设：校园问答助手小尤学长。
const systemPersona = `你是江西工业工程职业技术学院的智能问答助手，名字叫小尤学长。
请以亲切、友好的语气，根据提供的上下文信息和对话历史回答用户问题。
如果你不知道答案，请坦率表示，并建议用户联系学校相关部门。
回答要简洁明了，重点突出。`

// PromptConfig 控制提示词组装的截断行为。
type PromptConfig struct {
	// HistoryTurns 保留的历史消息条数，从最近往前取。
	HistoryTurns int
	// MaxPromptTokens 整个消息列表的 token 预算，超出部分从资料正文截断。
	MaxPromptTokens int
}

// PromptBuilder 将问题、对话历史与合并后的资料渲染为对话消息列表。
type PromptBuilder struct {
	cfg    PromptConfig
	tok    *tokenizer.Tokenizer
	logger *zap.Logger
}

// NewPromptBuilder 创建提示词构建器。
func NewPromptBuilder(cfg PromptConfig, tok *tokenizer.Tokenizer, logger *zap.Logger) *PromptBuilder {
	if cfg.HistoryTurns < 0 {
		cfg.HistoryTurns = 0
	}
	if cfg.MaxPromptTokens <= 0 {
		cfg.MaxPromptTokens = 3000
	}
	if tok == nil {
		tok = tokenizer.New(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptBuilder{cfg: cfg, tok: tok, logger: logger}
}

// promptSource 是进入提示词的一条资料，正文已按预算截断。
type promptSource struct {
	title string
	text  string
}

// Build 渲染完整消息列表：人设、截断后的历史、嵌入资料与问题的用户消息。
//
// token 预算优先保证人设、历史和问题本身，剩余额度按合并排名
// 依次分给资料正文，排名靠前的资料优先保留全文，排名靠后的被
// 截断或丢弃。
func (b *PromptBuilder) Build(query types.Query, passages []types.Passage) []types.Message {
	base := make([]types.Message, 0, b.cfg.HistoryTurns+2)
	base = append(base, types.NewSystemMessage(systemPersona))
	base = append(base, b.recentHistory(query.History)...)

	budget := b.sourceBudget(base, query.Text, passages)
	fitted := b.fitSources(passages, budget)
	if len(passages) > 0 && len(fitted) < len(passages) {
		b.logger.Debug("资料正文超出 token 预算，已截断",
			zap.Int("candidates", len(passages)),
			zap.Int("kept", len(fitted)),
			zap.Int("budget", budget))
	}

	return append(base, types.NewUserMessage(b.renderUserBody(query.Text, fitted)))
}

func (b *PromptBuilder) recentHistory(history []types.Message) []types.Message {
	if b.cfg.HistoryTurns == 0 || len(history) == 0 {
		return nil
	}
	if len(history) > b.cfg.HistoryTurns {
		history = history[len(history)-b.cfg.HistoryTurns:]
	}
	return history
}

// sourceBudget 返回资料正文可用的 token 额度：总预算减去固定部分
// （人设、历史、问题与资料标题脚手架）。
func (b *PromptBuilder) sourceBudget(base []types.Message, question string, passages []types.Passage) int {
	scaffold := make([]promptSource, len(passages))
	for i, p := range passages {
		scaffold[i] = promptSource{title: types.SourceFromPassage(p).Title}
	}
	fixed := make([]types.Message, 0, len(base)+1)
	fixed = append(fixed, base...)
	fixed = append(fixed, types.NewUserMessage(b.renderUserBody(question, scaffold)))
	return b.cfg.MaxPromptTokens - b.tok.CountMessages(fixed)
}

func (b *PromptBuilder) fitSources(passages []types.Passage, budget int) []promptSource {
	if budget <= 0 {
		return nil
	}
	fitted := make([]promptSource, 0, len(passages))
	for _, p := range passages {
		if budget <= 0 {
			break
		}
		text := b.tok.Truncate(strings.TrimSpace(p.Text), budget)
		if text == "" {
			continue
		}
		budget -= b.tok.CountTokens(text)
		fitted = append(fitted, promptSource{
			title: types.SourceFromPassage(p).Title,
			text:  text,
		})
	}
	return fitted
}

func (b *PromptBuilder) renderUserBody(question string, sources []promptSource) string {
	if len(sources) == 0 {
		return question
	}

	var sb strings.Builder
	sb.WriteString("以下是检索到的相关资料：\n\n")
	for i, s := range sources {
		fmt.Fprintf(&sb, "【资料%d - 来源：%s】\n%s\n\n", i+1, s.title, s.text)
	}
	sb.WriteString("【用户问题】\n")
	sb.WriteString(question)
	sb.WriteString("\n\n回答要求：\n")
	sb.WriteString("1. 优先根据上述资料回答，资料没有覆盖时请坦率说明；\n")
	sb.WriteString("2. 回答末尾注明引用了哪些资料来源。")
	return sb.String()
}
