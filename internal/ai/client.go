package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/remindbot/internal/command"
	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
		now:    time.Now,
	}
}

// Extraction is the model's reading of a free-form message.
type Extraction struct {
	IsReminder   bool   `json:"is_reminder"`
	DelayMinutes int    `json:"delay_minutes"`
	Text         string `json:"text"`
}

const systemPromptTemplate = `You read chat messages sent to a reminder bot.

Current time (UTC): %s

Decide whether the message asks to be reminded of something later.
If it does, set is_reminder to true, delay_minutes to the number of whole
minutes from now until the reminder should fire, and text to what the user
wants to be reminded of, without the time expression.
Relative times ("in 2 hours", "tomorrow at 9") must be converted to minutes
from the current time. If the message is not a reminder request, set
is_reminder to false, delay_minutes to 0 and text to "".`

var extractionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"is_reminder": {"type": "boolean"},
		"delay_minutes": {"type": "integer", "minimum": 0},
		"text": {"type": "string"}
	},
	"required": ["is_reminder", "delay_minutes", "text"],
	"additionalProperties": false
}`)

func (c *Client) systemPrompt() string {
	return fmt.Sprintf(systemPromptTemplate, c.now().UTC().Format("2006-01-02 15:04 (Monday)"))
}

// ExtractReminder asks the model whether text is a reminder request.
// ok is false when it is not, or when the answer is unusable.
func (c *Client) ExtractReminder(ctx context.Context, text string) (command.Remember, bool, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: c.systemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "reminder",
				Schema: extractionSchema,
				Strict: true,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return command.Remember{}, false, fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return command.Remember{}, false, fmt.Errorf("no response from AI")
	}

	var ex Extraction
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &ex); err != nil {
		return command.Remember{}, false, fmt.Errorf("failed to parse AI response: %w", err)
	}

	ex.Text = strings.TrimSpace(ex.Text)
	if !ex.IsReminder || ex.Text == "" || ex.DelayMinutes < 0 || ex.DelayMinutes > command.MaxDelayMinutes {
		return command.Remember{}, false, nil
	}
	return command.Remember{DelayMinutes: ex.DelayMinutes, Text: ex.Text}, true, nil
}
