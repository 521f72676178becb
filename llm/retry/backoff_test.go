package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/BaSui01/campusqa/types"
)

func fastPolicy(maxRetries int) *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

func TestBackoffRetryer_Success(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(3), zap.NewNop())
	ctx := context.Background()

	callCount := 0
	err := retryer.Do(ctx, func() error {
		callCount++
		return nil // 第一次就成功
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount, "应该只调用一次")
}

func TestBackoffRetryer_RetryAndSuccess(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(3), zap.NewNop())
	ctx := context.Background()

	callCount := 0
	transient := types.NewError(types.ErrUpstreamError, "upstream hiccup").WithRetryable(true)

	err := retryer.Do(ctx, func() error {
		callCount++
		if callCount < 3 {
			return transient // 前两次失败
		}
		return nil // 第三次成功
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount, "应该调用三次")
}

func TestBackoffRetryer_MaxRetriesExceeded(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(2), zap.NewNop())
	ctx := context.Background()

	callCount := 0
	transient := types.NewError(types.ErrRateLimited, "rate limited").
		WithHTTPStatus(http.StatusTooManyRequests).
		WithRetryable(true)

	err := retryer.Do(ctx, func() error {
		callCount++
		return transient
	})

	assert.Error(t, err)
	assert.Equal(t, 3, callCount, "初次 + 两次重试")
	assert.True(t, types.IsErrorCode(err, types.ErrRateLimited), "原始错误要能透过包装取回")
}

func TestBackoffRetryer_NonRetryableFailsFast(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(3), zap.NewNop())
	ctx := context.Background()

	callCount := 0
	clientErr := types.NewError(types.ErrInvalidRequest, "bad prompt").
		WithHTTPStatus(http.StatusBadRequest)

	err := retryer.Do(ctx, func() error {
		callCount++
		return clientErr
	})

	assert.Error(t, err)
	assert.Equal(t, 1, callCount, "4xx 不重试")
}

func TestBackoffRetryer_DefaultPolicyRetriesOnce(t *testing.T) {
	policy := DefaultRetryPolicy()
	policy.InitialDelay = 5 * time.Millisecond
	policy.Jitter = false

	retryer := NewBackoffRetryer(policy, zap.NewNop())

	callCount := 0
	transient := types.NewError(types.ErrUpstreamError, "500").WithRetryable(true)

	err := retryer.Do(context.Background(), func() error {
		callCount++
		return transient
	})

	assert.Error(t, err)
	assert.Equal(t, 2, callCount, "默认策略只补一次")
}

func TestBackoffRetryer_CustomRetryIf(t *testing.T) {
	policy := fastPolicy(5)
	marker := errors.New("retry me")
	policy.RetryIf = func(err error) bool {
		return errors.Is(err, marker)
	}

	retryer := NewBackoffRetryer(policy, zap.NewNop())

	callCount := 0
	err := retryer.Do(context.Background(), func() error {
		callCount++
		if callCount < 3 {
			return marker
		}
		return errors.New("other failure")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, callCount, "判定为不可重试后立即停止")
}

func TestBackoffRetryer_ContextCanceled(t *testing.T) {
	policy := fastPolicy(5)
	policy.InitialDelay = 50 * time.Millisecond

	retryer := NewBackoffRetryer(policy, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	transient := types.NewError(types.ErrUpstreamError, "down").WithRetryable(true)

	callCount := 0
	err := retryer.Do(ctx, func() error {
		callCount++
		cancel() // 失败后取消，延迟等待应立即中断
		return transient
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, callCount)
}

func TestBackoffRetryer_OnRetryCallback(t *testing.T) {
	policy := fastPolicy(2)

	var attempts []int
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	retryer := NewBackoffRetryer(policy, zap.NewNop())
	transient := types.NewError(types.ErrUpstreamError, "down").WithRetryable(true)

	_ = retryer.Do(context.Background(), func() error {
		return transient
	})

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoWithResultTyped(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(2), zap.NewNop())

	callCount := 0
	transient := types.NewError(types.ErrUpstreamError, "flaky").WithRetryable(true)

	value, err := DoWithResultTyped(retryer, context.Background(), func() (string, error) {
		callCount++
		if callCount == 1 {
			return "", transient
		}
		return "答案", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "答案", value)
	assert.Equal(t, 2, callCount)
}

func TestCalculateDelay_Clamped(t *testing.T) {
	policy := &RetryPolicy{
		MaxRetries:   10,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   3.0,
		Jitter:       false,
	}
	r := NewBackoffRetryer(policy, zap.NewNop()).(*backoffRetryer)

	assert.Equal(t, 10*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 30*time.Millisecond, r.calculateDelay(2))
	// 指数增长被 MaxDelay 截断
	assert.Equal(t, 50*time.Millisecond, r.calculateDelay(3))
	assert.Equal(t, 50*time.Millisecond, r.calculateDelay(8))
}
