package factory

import (
	"fmt"

	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/llm/ollama"
	"ai-docqa-be/pkg/llm/openai"
)

func NewProvider(providerType, modelName, baseURL, apiKey string) (llm.Provider, error) {
	switch providerType {
	case "ollama":
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "openai":
		return openai.NewOpenAIProvider(apiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
