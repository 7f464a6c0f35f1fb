// Command routerd wires the router engine's pieces together and runs one
// example completion to prove the assembly out end to end. It is a demo
// binary, not a service: routerd issues a single request against a fake
// in-process provider pair, prints the result, and exits. There is no HTTP
// listener — scheduling a real completion service is outside this engine's
// scope.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/modelroute/llmrouter/balancer"
	"github.com/modelroute/llmrouter/metrics"
	"github.com/modelroute/llmrouter/provider"
	"github.com/modelroute/llmrouter/rerrors"
	"github.com/modelroute/llmrouter/rlog"
	"github.com/modelroute/llmrouter/router"
	"github.com/modelroute/llmrouter/routerconfig"
	"github.com/modelroute/llmrouter/tokencount"
)

func main() {
	dev := flag.Bool("dev", true, "use a colored console logger instead of JSON")
	logFile := flag.String("log-file", "", "rotate logs to this path instead of stderr")
	flag.Parse()

	logger, err := rlog.New(rlog.Config{Dev: *dev, FilePath: *logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	tokencount.RegisterOpenAITokenizers()

	reg := prometheus.NewRegistry()
	collector := metrics.New("llmrouter", reg)

	cfg := routerconfig.New(
		routerconfig.WithLogger(logger),
		routerconfig.WithMetrics(collector),
		routerconfig.WithTokenCounter(tokencount.NewEstimator()),
		routerconfig.WithCooldownSeconds(60),
		routerconfig.WithModelGroup(routerconfig.ModelGroupConfig{
			Name: "gpt3-level-model",
			Providers: []routerconfig.ProviderConfig{
				{ModelID: "gpt-3.5-turbo", Impl: "openai", RPMLimit: 60, TPMLimit: 90_000, Weight: 1},
				{ModelID: "llama-3-70b", Impl: "self-hosted", RPMLimit: 0, TPMLimit: 0, Weight: 1},
			},
			Strategy:       balancer.StrategyCapacityBased,
			FallbackGroups: []string{"gpt3-level-model-degraded"},
		}),
		routerconfig.WithModelGroup(routerconfig.ModelGroupConfig{
			Name: "gpt3-level-model-degraded",
			Providers: []routerconfig.ProviderConfig{
				{ModelID: "llama-3-70b", Impl: "self-hosted", RPMLimit: 0, TPMLimit: 0, Weight: 1},
			},
			Strategy: balancer.StrategyRandom,
		}),
	)

	providers := map[string]provider.Provider{}
	for _, group := range cfg.ModelGroups {
		for _, p := range group.Providers {
			if _, ok := providers[p.ID]; ok {
				continue
			}
			providers[p.ID] = newDemoProvider(p.ID)
		}
	}

	r := router.New(cfg, providers)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := r.Completion(ctx, "gpt3-level-model", &provider.ChatRequest{
		Model: "gpt-3.5-turbo",
		Messages: []provider.Message{
			{Role: "user", Content: "Say hello in five words or fewer."},
		},
	})
	if err != nil {
		var rerr *rerrors.Error
		if errors.As(err, &rerr) {
			logger.Error("completion failed",
				zap.String("code", string(rerr.Code)),
				zap.Bool("retryable", rerr.Retryable),
				zap.Bool("fallback", rerr.Fallback),
				zap.Error(err))
		} else {
			logger.Error("completion failed", zap.Error(err))
		}
		os.Exit(1)
	}

	logger.Info("completion succeeded",
		zap.String("model", resp.Model),
		zap.String("content", resp.Content),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
}

// demoProvider is a fake Provider standing in for a real HTTP-backed
// adapter (provider.Hosted / provider.NewSelfHosted) so this binary runs
// without network access or API credentials. It answers every call
// successfully after a small simulated latency.
type demoProvider struct {
	id string
}

func newDemoProvider(id string) *demoProvider { return &demoProvider{id: id} }

func (d *demoProvider) ID() string { return d.id }

func (d *demoProvider) Completion(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	select {
	case <-time.After(time.Duration(50+rand.Intn(100)) * time.Millisecond):
	case <-ctx.Done():
		return nil, rerrors.New(rerrors.CodeRequestTimeout, "context cancelled").WithRetryable(true)
	}
	return &provider.ChatResponse{
		Model:     req.Model,
		Content:   fmt.Sprintf("Hello from %s!", d.id),
		Usage:     provider.ChatUsage{PromptTokens: 8, CompletionTokens: 4, TotalTokens: 12},
		CreatedAt: time.Now(),
	}, nil
}

func (d *demoProvider) HealthCheck(ctx context.Context) (*provider.HealthStatus, error) {
	return &provider.HealthStatus{Healthy: true, Latency: time.Millisecond}, nil
}
