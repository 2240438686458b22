package assist

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a helpful insurance assistant for MediSecure. " +
	"Answer briefly and plainly for an elderly audience. You only discuss the " +
	"member's plan, coverage, visits, and medications. If you do not know, say so."

// OpenAIResponder generates chat replies with the OpenAI chat completion
// API. It carries no conversation state; each query stands alone with the
// member's plan context in the prompt.
type OpenAIResponder struct {
	client *openai.Client
	model  string
}

func NewOpenAIResponder(apiKey, model string) *OpenAIResponder {
	return &OpenAIResponder{client: openai.NewClient(apiKey), model: model}
}

func (r *OpenAIResponder) Reply(ctx context.Context, q Query) (string, error) {
	if r.client == nil {
		return "", errors.New("openai client not initialized")
	}

	userContext := fmt.Sprintf("Member: %s. Plan: %s (%s).\n\nQuestion: %s",
		q.PatientName, q.PlanName, q.PlanID, q.Message)

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userContext},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
