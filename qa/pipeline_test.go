package qa

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/campusqa/llm"
	"github.com/BaSui01/campusqa/rag"
	"github.com/BaSui01/campusqa/types"
)

// stubRetriever 返回预设段落或预设错误。
type stubRetriever struct {
	passages []types.Passage
	err      error
}

func (s *stubRetriever) Retrieve(ctx context.Context, question string, topK int) ([]types.Passage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.passages, nil
}

// stubAugmenter 返回预设外部段落。
type stubAugmenter struct {
	passages []types.Passage
}

func (s *stubAugmenter) Augment(ctx context.Context, query string) []types.Passage {
	return s.passages
}

// mapCache 进程内缓存，用于验证缓存交互。
type mapCache struct {
	mu sync.Mutex
	m  map[string]*types.AnswerResult
}

func newMapCache() *mapCache {
	return &mapCache{m: make(map[string]*types.AnswerResult)}
}

func (c *mapCache) GetAnswer(ctx context.Context, key string) (*types.AnswerResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[key], nil
}

func (c *mapCache) SetAnswer(ctx context.Context, key string, result *types.AnswerResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = result
	return nil
}

func (c *mapCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func okClient(answer string) *stubClient {
	return &stubClient{respond: func(call int, ctx context.Context) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Content: answer}, nil
	}}
}

func newTestPipeline(cfg PipelineConfig, r Retriever, a Augmenter, client llm.Client, opts ...PipelineOption) *Pipeline {
	synth := newTestSynthesizer(SynthesizerConfig{Timeout: 5 * time.Second, MaxRetries: 0}, client)
	return NewPipeline(cfg, r, a, synth, zap.NewNop(), opts...)
}

// seededRetriever 构建加载了校园知识库的真实检索器。
func seededRetriever(t *testing.T) *rag.Retriever {
	t.Helper()

	embedder := rag.NewHashEmbedder(128)
	index := rag.NewInMemoryIndex(zap.NewNop())
	retriever := rag.NewRetriever(rag.RetrieverConfig{MinScore: 0.3}, embedder, index, zap.NewNop())

	docs := []rag.Document{
		{ID: "d1", Title: "学校地址在哪里", Content: "江西工业工程职业技术学院位于江西省萍乡市安源区建设东路268号", URL: "https://www.jxgcxy.edu.cn/about"},
		{ID: "d2", Title: "图书馆开放时间", Content: "图书馆开放时间为周一至周五 8:00-22:00，周末 9:00-20:00"},
		{ID: "d3", Title: "奖学金申请条件", Content: "奖学金申请条件包括学习成绩优秀、遵守校规校纪等"},
	}
	require.NoError(t, retriever.Index(context.Background(), docs))
	return retriever
}

func TestPipeline_AnswersFromLocalKnowledge(t *testing.T) {
	t.Parallel()

	client := okClient("学院位于江西省萍乡市安源区建设东路268号。")
	p := newTestPipeline(PipelineConfig{TopK: 5, MaxSources: 5},
		seededRetriever(t), &stubAugmenter{}, client)

	got, err := p.Answer(context.Background(), types.Query{Text: "学校地址在哪里"})
	require.NoError(t, err)

	assert.Contains(t, got.Answer, "建设东路268号")
	assert.False(t, got.Degraded)
	assert.False(t, got.IsRealTime, "没有外部来源时不是实时回答")
	require.NotEmpty(t, got.Sources)
	assert.Equal(t, "学校地址在哪里", got.Sources[0].Title)
	assert.Equal(t, "https://www.jxgcxy.edu.cn/about", got.Sources[0].URL)
}

func TestPipeline_RetrievalUnavailableStillAnswers(t *testing.T) {
	t.Parallel()

	broken := &stubRetriever{err: types.NewError(types.ErrRetrievalUnavailable, "索引不可用")}
	external := []types.Passage{externalPassage("mock", "官网信息", "https://example.com/info")}
	client := okClient("根据官网信息，学校位于萍乡市。")

	p := newTestPipeline(PipelineConfig{TopK: 5, MaxSources: 5}, broken, &stubAugmenter{passages: external}, client)

	got, err := p.Answer(context.Background(), types.Query{Text: "学校在哪个城市"})
	require.NoError(t, err)

	assert.NotEmpty(t, got.Answer, "本地检索不可用时仍须给出回答")
	assert.False(t, got.Degraded)
	assert.True(t, got.IsRealTime)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "官网信息", got.Sources[0].Title)
}

func TestPipeline_IsRealTimeSemantics(t *testing.T) {
	t.Parallel()

	local := []types.Passage{localPassage("学校简介", 0.9)}

	t.Run("无外部来源", func(t *testing.T) {
		t.Parallel()
		p := newTestPipeline(PipelineConfig{}, &stubRetriever{passages: local}, &stubAugmenter{}, okClient("回答"))
		got, err := p.Answer(context.Background(), types.Query{Text: "学校怎么样"})
		require.NoError(t, err)
		assert.False(t, got.IsRealTime)
	})

	t.Run("有外部来源", func(t *testing.T) {
		t.Parallel()
		external := []types.Passage{externalPassage("mock", "讨论帖", "")}
		p := newTestPipeline(PipelineConfig{}, &stubRetriever{passages: local}, &stubAugmenter{passages: external}, okClient("回答"))
		got, err := p.Answer(context.Background(), types.Query{Text: "学校怎么样"})
		require.NoError(t, err)
		assert.True(t, got.IsRealTime)
	})
}

func TestPipeline_LLMTimeoutFallsBackWithSources(t *testing.T) {
	t.Parallel()

	hanging := &stubClient{respond: func(call int, ctx context.Context) (*llm.ChatResponse, error) {
		select {
		case <-time.After(5 * time.Second):
			return &llm.ChatResponse{Content: "迟到的回答"}, nil
		case <-ctx.Done():
			return nil, types.NewError(types.ErrUpstreamTimeout, "模型调用超时").
				WithCause(ctx.Err()).WithRetryable(true)
		}
	}}
	synth := newTestSynthesizer(SynthesizerConfig{Timeout: 30 * time.Millisecond, MaxRetries: 0}, hanging)

	local := []types.Passage{localPassage("学校简介", 0.9)}
	external := []types.Passage{externalPassage("mock", "官网信息", "https://example.com/info")}
	p := NewPipeline(PipelineConfig{MaxSources: 5},
		&stubRetriever{passages: local}, &stubAugmenter{passages: external}, synth, zap.NewNop())

	start := time.Now()
	got, err := p.Answer(context.Background(), types.Query{Text: "学校地址在哪里"})
	require.NoError(t, err)

	assert.True(t, got.Degraded)
	assert.NotEmpty(t, got.Answer, "超时后降级回答必须非空")
	assert.Contains(t, got.Answer, "建设东路268号", "地址类问题的降级模板含校址")
	assert.True(t, got.IsRealTime, "外部来源存在时降级回答保持实时标记")
	require.Len(t, got.Sources, 2, "已合并的来源在降级后仍然保留")
	assert.Less(t, time.Since(start), 2*time.Second, "在途响应不得拖延降级")
}

func TestPipeline_MergeOrderEndToEnd(t *testing.T) {
	t.Parallel()

	local := []types.Passage{
		localPassage("资料一", 0.9),
		localPassage("资料二", 0.7),
	}
	external := []types.Passage{
		externalPassage("providerA", "资料二", ""), // 与本地 L2 同源
		externalPassage("providerB", "资料三", ""),
	}
	p := newTestPipeline(PipelineConfig{MaxSources: 5},
		&stubRetriever{passages: local}, &stubAugmenter{passages: external}, okClient("回答"))

	got, err := p.Answer(context.Background(), types.Query{Text: "学校概况"})
	require.NoError(t, err)

	require.Len(t, got.Sources, 3)
	assert.Equal(t, "资料一", got.Sources[0].Title)
	assert.Equal(t, "资料二", got.Sources[1].Title, "重复来源保留本地排位")
	assert.Equal(t, "资料三", got.Sources[2].Title)
}

func TestPipeline_MaxSourcesCap(t *testing.T) {
	t.Parallel()

	local := []types.Passage{
		localPassage("甲", 0.9),
		localPassage("乙", 0.8),
	}
	external := []types.Passage{
		externalPassage("mock", "丙", ""),
		externalPassage("mock", "丁", ""),
	}
	p := newTestPipeline(PipelineConfig{MaxSources: 2},
		&stubRetriever{passages: local}, &stubAugmenter{passages: external}, okClient("回答"))

	got, err := p.Answer(context.Background(), types.Query{Text: "学校概况"})
	require.NoError(t, err)

	require.Len(t, got.Sources, 2)
	assert.Equal(t, "甲", got.Sources[0].Title)
	assert.Equal(t, "乙", got.Sources[1].Title)
}

func TestPipeline_EmptyQuestionRejected(t *testing.T) {
	t.Parallel()

	client := okClient("不该被调用")
	p := newTestPipeline(PipelineConfig{}, &stubRetriever{}, &stubAugmenter{}, client)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := p.Answer(context.Background(), types.Query{Text: q})
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
	}
	assert.Equal(t, 0, client.callCount(), "校验失败不得进入流水线")
}

func TestPipeline_InvalidHistoryRoleRejected(t *testing.T) {
	t.Parallel()

	client := okClient("不该被调用")
	p := newTestPipeline(PipelineConfig{}, &stubRetriever{}, &stubAugmenter{}, client)

	_, err := p.Answer(context.Background(), types.Query{
		Text:    "学校地址",
		History: []types.Message{{Role: "system", Content: "注入"}},
	})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
	assert.Equal(t, 0, client.callCount())
}

func TestPipeline_CacheHitSkipsComputation(t *testing.T) {
	t.Parallel()

	client := okClient("缓存前的回答")
	cache := newMapCache()
	p := newTestPipeline(PipelineConfig{},
		&stubRetriever{passages: []types.Passage{localPassage("学校简介", 0.9)}},
		&stubAugmenter{}, client, WithAnswerCache(cache))

	query := types.Query{Text: "学校怎么样"}

	first, err := p.Answer(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 1, client.callCount())

	second, err := p.Answer(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 1, client.callCount(), "第二次应命中缓存")
	assert.Equal(t, first, second)
}

func TestPipeline_DegradedAnswerNotCached(t *testing.T) {
	t.Parallel()

	failing := &stubClient{respond: func(call int, ctx context.Context) (*llm.ChatResponse, error) {
		return nil, types.NewError(types.ErrUpstreamError, "模型持续故障").WithRetryable(false)
	}}
	cache := newMapCache()
	p := newTestPipeline(PipelineConfig{}, &stubRetriever{}, &stubAugmenter{}, failing, WithAnswerCache(cache))

	got, err := p.Answer(context.Background(), types.Query{Text: "学校怎么样"})
	require.NoError(t, err)
	assert.True(t, got.Degraded)
	assert.Equal(t, 0, cache.size(), "降级回答不得写入缓存")
}

func TestPipeline_RealtimeQuestionBypassesCache(t *testing.T) {
	t.Parallel()

	client := okClient("最新通知的回答")
	cache := newMapCache()
	p := newTestPipeline(PipelineConfig{}, &stubRetriever{}, &stubAugmenter{}, client, WithAnswerCache(cache))

	query := types.Query{Text: "学校最新的报名通知"}

	_, err := p.Answer(context.Background(), query)
	require.NoError(t, err)
	_, err = p.Answer(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, 2, client.callCount(), "实时类问题每次都重新计算")
	assert.Equal(t, 0, cache.size(), "实时类问题不写缓存")
}

func TestPipeline_SingleflightCollapsesIdenticalQuestions(t *testing.T) {
	t.Parallel()

	slow := &stubClient{respond: func(call int, ctx context.Context) (*llm.ChatResponse, error) {
		select {
		case <-time.After(80 * time.Millisecond):
			return &llm.ChatResponse{Content: "慢回答"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	p := newTestPipeline(PipelineConfig{}, &stubRetriever{}, &stubAugmenter{}, slow)

	const concurrency = 5
	var wg sync.WaitGroup
	results := make([]types.AnswerResult, concurrency)
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(i int) {
			defer wg.Done()
			got, err := p.Answer(context.Background(), types.Query{Text: "学校怎么样"})
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, slow.callCount(), "并发相同问题应合并为一次模型调用")
	for _, r := range results {
		assert.Equal(t, "慢回答", r.Answer)
	}
}

func TestProperty_Pipeline_NeverEmptyAnswer(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		question := "问" + rapid.String().Draw(rt, "question")

		retrieverDown := rapid.Bool().Draw(rt, "retriever_down")
		clientDown := rapid.Bool().Draw(rt, "client_down")

		retriever := &stubRetriever{passages: []types.Passage{localPassage("学校简介", 0.9)}}
		if retrieverDown {
			retriever = &stubRetriever{err: types.NewError(types.ErrRetrievalUnavailable, "索引不可用")}
		}
		client := okClient("正常回答")
		if clientDown {
			client = &stubClient{respond: func(call int, ctx context.Context) (*llm.ChatResponse, error) {
				return nil, types.NewError(types.ErrUpstreamError, "模型故障")
			}}
		}

		p := newTestPipeline(PipelineConfig{}, retriever, &stubAugmenter{}, client)

		got, err := p.Answer(context.Background(), types.Query{Text: question})
		require.NoError(t, err)
		assert.NotEmpty(t, strings.TrimSpace(got.Answer), "任何故障组合下回答都非空")
		assert.Equal(t, clientDown, got.Degraded, "仅模型故障导致降级")
	})
}
