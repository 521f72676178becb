package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/types"
)

func TestGuguDataProvider_Search(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("appkey"))
		assert.Equal(t, "机电一体化", r.URL.Query().Get("keyword"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"DataStatus": {"StatusCode": 100, "StatusDescription": "success"},
			"Data": [
				{"MajorName": "机电一体化技术", "MajorCategory": "装备制造", "MajorDetail": "培养机电设备安装调试人才。"},
				{"MajorName": "工业机器人技术", "MajorCategory": "装备制造", "MajorDetail": ""}
			]
		}`))
	}))
	defer srv.Close()

	p := NewGuguDataProvider(srv.URL, "test-key", zap.NewNop())

	passages, err := p.Search(context.Background(), "机电一体化")
	require.NoError(t, err)
	require.Len(t, passages, 2)

	assert.Equal(t, "机电一体化技术 - 专业介绍", passages[0].Title)
	assert.Equal(t, "培养机电设备安装调试人才。", passages[0].Text)
	assert.Equal(t, types.OriginExternal, passages[0].Origin)
	assert.Equal(t, "gugudata", passages[0].Provider)
	assert.Empty(t, passages[0].URL, "元数据 API 的结果没有 URL")

	// 缺 MajorDetail 时合成正文
	assert.Contains(t, passages[1].Text, "工业机器人技术")
}

func TestGuguDataProvider_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewGuguDataProvider(srv.URL, "test-key", zap.NewNop())

	_, err := p.Search(context.Background(), "机电一体化")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrProviderFailure))
}

func TestGuguDataProvider_BusinessError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"DataStatus": {"StatusCode": 401, "StatusDescription": "invalid appkey"}, "Data": []}`))
	}))
	defer srv.Close()

	p := NewGuguDataProvider(srv.URL, "bad-key", zap.NewNop())

	_, err := p.Search(context.Background(), "机电一体化")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid appkey")
}

func TestGuguDataProvider_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	p := NewGuguDataProvider(srv.URL, "test-key", zap.NewNop())

	_, err := p.Search(context.Background(), "机电一体化")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrProviderFailure))
}

func TestGuguDataProvider_ContextCanceled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := NewGuguDataProvider(srv.URL, "test-key", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Search(ctx, "机电一体化")
	require.Error(t, err)

	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.True(t, typed.Retryable)
}
