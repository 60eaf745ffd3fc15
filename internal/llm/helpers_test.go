package llm

import "github.com/mohammad-safakhou/azadi/config"

func geminiConfigForTest(key string) config.GeminiConfig {
	return config.GeminiConfig{APIKey: key, Model: "gemini-2.5-flash", SearchMaxTokens: 2048, EnrichMaxTokens: 1024}
}
