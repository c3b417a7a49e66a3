package usecase

import "culinary-assistant/internal/domain"

const (
	chatModel       = "gpt-3.5-turbo"
	chatTemperature = float32(0.7)
	chatMaxTokens   = 500

	systemPrompt = "Ты опытный шеф-повар и кулинарный помощник. Отвечай на русском языке. " +
		"Давай полезные советы по готовке, рецепты, помогай с заменой ингредиентов. " +
		"Будь дружелюбным и понятным."
)

// buildChatRequest returns the fixed two-message request: persona first, then
// the user's message verbatim.
func buildChatRequest(message string) domain.ChatRequest {
	return domain.ChatRequest{
		Model: chatModel,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: systemPrompt},
			{Role: domain.RoleUser, Content: message},
		},
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	}
}
