package oracle_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/circuitbreaker"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blocking(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func fastGuard(name string) oracle.GuardConfig {
	return oracle.GuardConfig{
		Name:  name,
		Retry: retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		Breaker: circuitbreaker.Config{
			FailureThreshold: 5,
			Timeout:          time.Minute,
		},
	}
}

func TestFunc_TimeoutIsErrTimeout(t *testing.T) {
	t.Parallel()

	_, err := oracle.Func(blocking).Invoke(context.Background(), "hello", 10*time.Millisecond)
	require.ErrorIs(t, err, oracle.ErrTimeout)
	assert.Equal(t, "timeout", oracle.Outcome(err))
}

func TestFunc_CallerCancellationPropagates(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := oracle.Func(blocking).Invoke(ctx, "hello", time.Second)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, oracle.ErrUnavailable)
}

func TestFunc_EmptyPrompt(t *testing.T) {
	t.Parallel()

	called := false
	_, err := oracle.Func(func(context.Context, string) (string, error) {
		called = true
		return "", nil
	}).Invoke(context.Background(), "   ", time.Second)

	require.ErrorIs(t, err, oracle.ErrEmptyPrompt)
	assert.False(t, called)
}

func TestUnavailable(t *testing.T) {
	t.Parallel()

	_, err := oracle.Unavailable{Reason: "provider none"}.Invoke(context.Background(), "x", time.Second)
	require.ErrorIs(t, err, oracle.ErrUnavailable)
}

func TestGuarded_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	inner := oracle.Func(func(context.Context, string) (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("error, status code: 503, message: overloaded")
		}
		return `[{"program_name":"x"}]`, nil
	})

	g := oracle.NewGuarded(inner, fastGuard("test"), logger.NewNop(), nil)
	out, err := g.Invoke(context.Background(), "discover", time.Second)

	require.NoError(t, err)
	assert.JSONEq(t, `[{"program_name":"x"}]`, out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGuarded_BreakerOpensAndShortCircuits(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	inner := oracle.Func(func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", errors.New("invalid api key")
	})

	cfg := fastGuard("test")
	cfg.Retry.MaxAttempts = 1
	cfg.Breaker.FailureThreshold = 2
	g := oracle.NewGuarded(inner, cfg, logger.NewNop(), nil)

	for range 2 {
		_, err := g.Invoke(context.Background(), "discover", time.Second)
		require.ErrorIs(t, err, oracle.ErrUnavailable)
	}

	_, err := g.Invoke(context.Background(), "discover", time.Second)
	require.ErrorIs(t, err, oracle.ErrUnavailable)
	require.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load(), "open circuit must not reach the provider")
}

func TestGuarded_OverallTimeout(t *testing.T) {
	t.Parallel()

	g := oracle.NewGuarded(oracle.Func(blocking), fastGuard("test"), logger.NewNop(), nil)
	start := time.Now()
	_, err := g.Invoke(context.Background(), "discover", 20*time.Millisecond)

	require.ErrorIs(t, err, oracle.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOpenAIClient_Invoke(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Equal(t, "rank programs", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"[]"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := oracle.NewOpenAIClient("sk-test", "gpt-test", srv.URL+"/v1", 0, srv.Client())
	out, err := c.Invoke(context.Background(), "rank programs", time.Second)

	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestOpenAIClient_ServerErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := oracle.NewOpenAIClient("sk-test", "gpt-test", srv.URL+"/v1", 0, srv.Client())
	_, err := c.Invoke(context.Background(), "rank programs", time.Second)

	require.ErrorIs(t, err, oracle.ErrUnavailable)
}

func TestAnthropicClient_Invoke(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"[{\"program_name\":"},{"type":"text","text":"\"Amazon Associates\"}]"}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":5}}`))
	}))
	defer srv.Close()

	c := oracle.NewAnthropicClient("sk-ant-test", "claude-test", srv.URL, 256, nil)
	out, err := c.Invoke(context.Background(), "rank programs", time.Second)

	require.NoError(t, err)
	assert.JSONEq(t, `[{"program_name":"Amazon Associates"}]`, out)
}

func TestNew_ProviderSelection(t *testing.T) {
	t.Parallel()

	c, err := oracle.New(oracle.Config{Provider: oracle.ProviderNone}, logger.NewNop(), nil)
	require.NoError(t, err)
	_, err = c.Invoke(context.Background(), "x", time.Second)
	require.ErrorIs(t, err, oracle.ErrUnavailable)

	_, err = oracle.New(oracle.Config{Provider: oracle.ProviderAnthropic}, logger.NewNop(), nil)
	require.Error(t, err)

	_, err = oracle.New(oracle.Config{Provider: "bard"}, logger.NewNop(), nil)
	require.Error(t, err)

	c, err = oracle.New(oracle.Config{Provider: oracle.ProviderOpenAI, APIKey: "k", Model: "m"}, logger.NewNop(), nil)
	require.NoError(t, err)
	assert.IsType(t, &oracle.Guarded{}, c)
}
