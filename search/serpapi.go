package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/internal/tlsutil"
	"github.com/BaSui01/campusqa/types"
)

// serpAPIMaxResults 单次学术搜索取回的结果数
const serpAPIMaxResults = 5

// SerpAPIProvider 基于 SerpAPI 的学术搜索。
// 使用 Google Scholar 引擎查询与提问相关的公开文献和资讯。
type SerpAPIProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// NewSerpAPIProvider 创建学术搜索 provider
func NewSerpAPIProvider(endpoint, apiKey string, logger *zap.Logger) *SerpAPIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SerpAPIProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   tlsutil.SecureHTTPClient(0), // 超时由增强器的 ctx 控制
		logger:   logger,
	}
}

// Name 返回 provider 标识
func (p *SerpAPIProvider) Name() string {
	return "serpapi"
}

// serpAPIResponse SerpAPI 响应（只取需要的字段）
type serpAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search 执行学术搜索
func (p *SerpAPIProvider) Search(ctx context.Context, query string) ([]types.Passage, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, types.NewError(types.ErrProviderFailure, "invalid serpapi endpoint").
			WithCause(err).
			WithProvider(p.Name())
	}

	q := u.Query()
	q.Set("engine", "google_scholar")
	q.Set("q", query)
	q.Set("api_key", p.apiKey)
	q.Set("hl", "zh-cn")
	q.Set("num", strconv.Itoa(serpAPIMaxResults))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, types.NewError(types.ErrProviderFailure, "failed to build serpapi request").
			WithCause(err).
			WithProvider(p.Name())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrProviderFailure, "serpapi request failed").
			WithCause(err).
			WithProvider(p.Name()).
			WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrProviderFailure,
			fmt.Sprintf("serpapi returned status %d", resp.StatusCode)).
			WithHTTPStatus(resp.StatusCode).
			WithProvider(p.Name())
	}

	var body serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, types.NewError(types.ErrProviderFailure, "serpapi response is not valid JSON").
			WithCause(err).
			WithProvider(p.Name())
	}

	passages := make([]types.Passage, 0, len(body.OrganicResults))
	for _, r := range body.OrganicResults {
		if r.Snippet == "" && r.Title == "" {
			continue
		}
		passages = append(passages, types.Passage{
			Text:     r.Snippet,
			Origin:   types.OriginExternal,
			Provider: p.Name(),
			Title:    r.Title,
			URL:      r.Link,
		})
	}

	p.logger.Debug("serpapi search completed",
		zap.String("query", query),
		zap.Int("results", len(passages)))

	return passages, nil
}
