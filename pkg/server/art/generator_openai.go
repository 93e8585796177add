package art

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type OpenAiGenerator struct {
	visionModel string
	imageModel  string
	client      *openai.Client
}

var _ Generator = (*OpenAiGenerator)(nil)

func NewOpenAiGenerator(apiKey string, visionModel string, imageModel string) *OpenAiGenerator {
	return &OpenAiGenerator{
		visionModel: visionModel,
		imageModel:  imageModel,
		client:      openai.NewClient(apiKey),
	}
}

// Transform runs the two-stage pipeline: describe the desired result with a
// vision model, then generate a new image from that description.
func (g *OpenAiGenerator) Transform(ctx context.Context, imageURL string, instruction string) (string, error) {
	description, err := g.describe(ctx, imageURL, instruction)
	if err != nil {
		return "", err
	}

	return g.render(ctx, description, instruction)
}

func (g *OpenAiGenerator) describe(ctx context.Context, imageURL string, instruction string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.visionModel,
		MaxTokens: 1000,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: describePrompt(instruction),
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrGeneration)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no description returned: %w", ErrGeneration)
	}

	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAiGenerator) render(ctx context.Context, description string, instruction string) (string, error) {
	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         renderPrompt(description, instruction),
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		N:              1,
		Model:          g.imageModel,
	})
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrGeneration)
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("no image data returned: %w", ErrGeneration)
	}

	return resp.Data[0].URL, nil
}

func describePrompt(instruction string) string {
	return fmt.Sprintf("Look at this image and follow these instructions: %s. Based on this image, describe in great detail how this image would look with the requested style transformation.", instruction)
}

func renderPrompt(description string, instruction string) string {
	return fmt.Sprintf("Create a new image that looks like this: %s. Apply the following style transformation: %s.", description, instruction)
}
