package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warehouse-agent/internal/agent"
	"github.com/sells-group/warehouse-agent/internal/config"
	"github.com/sells-group/warehouse-agent/internal/llm"
	"github.com/sells-group/warehouse-agent/internal/metrics"
	"github.com/sells-group/warehouse-agent/internal/model"
	"github.com/sells-group/warehouse-agent/internal/secrets"
	"github.com/sells-group/warehouse-agent/internal/store"
	"github.com/sells-group/warehouse-agent/internal/warehouse"
)

// session bundles everything one command needs to answer questions.
type session struct {
	wh       warehouse.Warehouse
	agent    *agent.Agent
	store    store.Store
	provider string
	stop     context.CancelFunc
}

// resolveAPIKey fills a missing provider key from the OS keyring. An
// unavailable keyring is not an error; Validate reports the missing key.
func resolveAPIKey(c *config.Config) error {
	if c.LLM.APIKey() != "" {
		return nil
	}
	ring, err := secrets.Open()
	if err != nil {
		zap.L().Debug("keyring unavailable", zap.Error(err))
		return nil
	}
	return c.ResolveAPIKey(ring.Lookup())
}

// openSession validates the config and connects every collaborator.
// Connection and configuration failures are fatal.
func openSession(ctx context.Context, c *config.Config) (*session, error) {
	if err := resolveAPIKey(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	rec := metrics.NewRecorder()
	mctx, stop := context.WithCancel(context.Background())
	if c.Metrics.Addr != "" {
		go func() {
			if err := rec.Serve(mctx, c.Metrics.Addr); err != nil {
				zap.L().Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	completer, err := llm.New(c.LLM, llm.WithMetrics(rec))
	if err != nil {
		stop()
		return nil, err
	}

	wh, err := warehouse.Open(ctx, c.Warehouse)
	if err != nil {
		stop()
		return nil, eris.Wrap(err, "open warehouse")
	}

	st, err := store.Open(ctx, c.Store)
	if err != nil {
		stop()
		_ = wh.Close()
		return nil, eris.Wrap(err, "open run store")
	}

	opts := []agent.Option{
		agent.WithRetryBudget(c.Agent.MaxRetries),
		agent.WithSchemas(c.Warehouse.Schemas),
		agent.WithMaxSummaryRows(c.Agent.MaxSummaryRows),
		agent.WithDialect(c.Warehouse.Driver),
		agent.WithMetrics(rec),
	}
	if c.Agent.SkipSummary {
		opts = append(opts, agent.WithSkipSummary())
	}

	return &session{
		wh:       wh,
		agent:    agent.New(wh, completer, wh, opts...),
		store:    st,
		provider: completer.Name(),
		stop:     stop,
	}, nil
}

// ask answers one question and records it in the run store.
func (s *session) ask(ctx context.Context, question string) (*model.AnswerResult, error) {
	res, err := s.agent.Answer(ctx, question)

	run := model.NewRun("", question, s.provider, res, err)
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if serr := s.store.SaveRun(saveCtx, &run); serr != nil {
		zap.L().Warn("record run", zap.Error(serr))
	}
	return res, err
}

func (s *session) Close() {
	s.stop()
	if err := s.store.Close(); err != nil {
		zap.L().Warn("close run store", zap.Error(err))
	}
	if err := s.wh.Close(); err != nil {
		zap.L().Warn("close warehouse", zap.Error(err))
	}
}
