package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/internal/tlsutil"
	"github.com/BaSui01/campusqa/types"
)

// guguDataStatusOK 咕咕数据约定的成功状态码
const guguDataStatusOK = 100

// GuguDataProvider 咕咕数据专业元数据 API。
// 按关键词查询高职专业目录，返回专业介绍类资料。
// 该 API 没有可跳转的结果页，产出的段落不带 URL。
type GuguDataProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// NewGuguDataProvider 创建咕咕数据 provider
func NewGuguDataProvider(endpoint, apiKey string, logger *zap.Logger) *GuguDataProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuguDataProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   tlsutil.SecureHTTPClient(0), // 超时由增强器的 ctx 控制
		logger:   logger,
	}
}

// Name 返回 provider 标识
func (p *GuguDataProvider) Name() string {
	return "gugudata"
}

// guguDataResponse 咕咕数据响应
type guguDataResponse struct {
	DataStatus struct {
		StatusCode        int    `json:"StatusCode"`
		StatusDescription string `json:"StatusDescription"`
	} `json:"DataStatus"`
	Data []guguDataMajor `json:"Data"`
}

type guguDataMajor struct {
	MajorName     string `json:"MajorName"`
	MajorCategory string `json:"MajorCategory"`
	MajorDetail   string `json:"MajorDetail"`
}

// Search 查询专业元数据
func (p *GuguDataProvider) Search(ctx context.Context, query string) ([]types.Passage, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, types.NewError(types.ErrProviderFailure, "invalid gugudata endpoint").
			WithCause(err).
			WithProvider(p.Name())
	}

	q := u.Query()
	q.Set("appkey", p.apiKey)
	q.Set("keyword", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, types.NewError(types.ErrProviderFailure, "failed to build gugudata request").
			WithCause(err).
			WithProvider(p.Name())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrProviderFailure, "gugudata request failed").
			WithCause(err).
			WithProvider(p.Name()).
			WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrProviderFailure,
			fmt.Sprintf("gugudata returned status %d", resp.StatusCode)).
			WithHTTPStatus(resp.StatusCode).
			WithProvider(p.Name())
	}

	var body guguDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, types.NewError(types.ErrProviderFailure, "gugudata response is not valid JSON").
			WithCause(err).
			WithProvider(p.Name())
	}

	if body.DataStatus.StatusCode != guguDataStatusOK {
		return nil, types.NewError(types.ErrProviderFailure,
			fmt.Sprintf("gugudata business error %d: %s",
				body.DataStatus.StatusCode, body.DataStatus.StatusDescription)).
			WithProvider(p.Name())
	}

	passages := make([]types.Passage, 0, len(body.Data))
	for _, major := range body.Data {
		text := major.MajorDetail
		if text == "" {
			text = fmt.Sprintf("专业“%s”属于%s类。", major.MajorName, major.MajorCategory)
		}
		passages = append(passages, types.Passage{
			Text:     text,
			Origin:   types.OriginExternal,
			Provider: p.Name(),
			Title:    fmt.Sprintf("%s - 专业介绍", major.MajorName),
		})
	}

	p.logger.Debug("gugudata search completed",
		zap.String("query", query),
		zap.Int("results", len(passages)))

	return passages, nil
}
