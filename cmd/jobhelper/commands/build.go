package commands

import (
	"context"

	"jobhelper/internal/clipboard"
	"jobhelper/internal/extract"
	"jobhelper/internal/llm"
	"jobhelper/internal/llm/gemini"
	"jobhelper/internal/llm/openai"
	"jobhelper/internal/session"
	"jobhelper/internal/shared/apperr"
	"jobhelper/internal/shared/config"
	"jobhelper/internal/shared/telemetry"
)

// newCompleter builds the configured provider. A missing key is reported as
// a ConfigError so the session can surface it on submit.
func newCompleter(ctx context.Context, cfg config.Config) (llm.Completer, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		c, err := gemini.New(ctx, cfg.APIKey(), cfg.LLMModel, cfg.LLMMaxTokens, cfg.LLMTimeout)
		if err != nil {
			return nil, apperr.Config(err.Error())
		}
		return c, nil
	default:
		c, err := openai.NewClient(cfg.APIKey(), cfg.LLMModel, cfg.LLMMaxTokens, cfg.LLMTimeout)
		if err != nil {
			return nil, apperr.Config(err.Error())
		}
		return c.WithEndpoint(cfg.OpenAIAPIURL), nil
	}
}

// newDocuments is replaced in tests.
var newDocuments = func(cfg config.Config) session.DocumentExtractor {
	relay := extract.NewPrefixRelay(cfg.RelayURL, cfg.FetchUserAgent, cfg.FetchTimeout)
	return extract.New(relay)
}

func newService(ctx context.Context, cfg config.Config, clip clipboard.Writer, opts ...session.Option) *session.Service {
	completer, cfgErr := newCompleter(ctx, cfg)
	if cfgErr != nil {
		telemetry.Error("config.completer_unavailable", map[string]any{
			"provider": cfg.LLMProvider,
			"error":    cfgErr,
		})
	} else {
		telemetry.Info("config.completer_ready", map[string]any{
			"provider": completer.Name(),
			"model":    cfg.LLMModel,
		})
	}

	return session.NewService(session.Deps{
		Machine:   session.NewMachine(cfg.RevealTick, opts...),
		Documents: newDocuments(cfg),
		Completer: completer,
		ConfigErr: cfgErr,
		Clipboard: clip,
	})
}
