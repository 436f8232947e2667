package provider

import (
	"github.com/creatorops/scout/config"
	"github.com/creatorops/scout/internal/qualify"
	openai_provider "github.com/creatorops/scout/provider/openai"
)

// NewProvider creates the LLM gateway from configuration. A client is
// returned even without credentials so the pipeline can probe Available()
// and fall back to the heuristic selector.
func NewProvider(cfg config.LLMConfig) qualify.LLMProvider {
	return openai_provider.NewClient(
		cfg.APIKey,
		cfg.BaseURL,
		cfg.ScreenModel,
		cfg.Temperature,
		cfg.MaxTokens,
		cfg.Timeout,
	)
}
