package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const submitToolName = "submit_result"

// OpenAITransport answers gateway actions with a chat completion and wraps the
// tool-call arguments in the same {success, data} envelope the HTTP gateway uses.
type OpenAITransport struct {
	client *openai.Client
	model  string
}

func NewOpenAITransport(apiKey, baseURL, model string) (*OpenAITransport, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, newError(ErrKindConfig, "openai api key is not configured", nil)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAITransport{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (t *OpenAITransport) Do(ctx context.Context, payload map[string]interface{}) ([]byte, error) {
	action, _ := payload["action"].(string)
	schema, ok := resultSchemas[action]
	if !ok {
		return nil, newError(ErrKindConfig, fmt.Sprintf("unsupported action %q", action), nil)
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an assistant for instructors. You review assignment instructions and write comprehension quiz questions that check a student understood their own work.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(action, payload),
			},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        submitToolName,
					Description: "Submit the result",
					Parameters:  schema,
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: submitToolName},
		},
	})
	if err != nil {
		return nil, mapOpenAIError(err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return envelope(false, nil, "model returned no result")
	}
	call := resp.Choices[0].Message.ToolCalls[0]
	if call.Function.Name != submitToolName {
		return envelope(false, nil, fmt.Sprintf("unexpected tool call: %s", call.Function.Name))
	}
	if !json.Valid([]byte(call.Function.Arguments)) {
		return nil, newError(ErrKindMalformed, "model returned invalid JSON arguments", nil)
	}
	return envelope(true, json.RawMessage(call.Function.Arguments), "")
}

func envelope(success bool, data json.RawMessage, message string) ([]byte, error) {
	env := map[string]interface{}{"success": success}
	if success {
		env["data"] = data
	} else {
		env["error"] = message
	}
	return json.Marshal(env)
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return &Error{Kind: ErrKindAuth, Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
		case http.StatusNotFound:
			return &Error{Kind: ErrKindNotFound, Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
		default:
			return &Error{Kind: ErrKindHTTPStatus, Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Kind: ErrKindHTTPStatus, Status: reqErr.HTTPStatusCode, Message: snippet(reqErr.Body), Err: err}
	}
	return newError(ErrKindConnection, connectionMessage(err), err)
}

func buildPrompt(action string, payload map[string]interface{}) string {
	var sb strings.Builder

	switch action {
	case ActionCheckInstructions:
		sb.WriteString("Review these assignment instructions. Decide whether they are clear enough to generate comprehension questions from and suggest improvements.\n\n")
		sb.WriteString(fmt.Sprint(payload["instructions"]))
	case ActionGenerateQuestions:
		sb.WriteString(fmt.Sprintf("Generate %v quiz questions about these assignment instructions.\n\n", payload["count"]))
		sb.WriteString(fmt.Sprint(payload["instructions"]))
	case ActionAnalyzeSubmission:
		sb.WriteString(fmt.Sprintf("Generate %v quiz questions that check the student understands the following submission they wrote.\n\n", payload["count"]))
		sb.WriteString(fmt.Sprint(payload["submission_text"]))
	}
	sb.WriteString("\n")

	if files, ok := payload["files"].([]map[string]interface{}); ok {
		for _, f := range files {
			writeFile(&sb, f)
		}
	}

	sb.WriteString("\nRequirements:\n")
	sb.WriteString("- Use types multiple_choice, true_false or short_answer\n")
	sb.WriteString("- Multiple choice questions have 4 options and exactly one is correct\n")
	sb.WriteString("- Provide a brief explanation for each question\n")
	sb.WriteString("- Use the submit_result tool to return your answer\n")
	return sb.String()
}

// writeFile inlines text attachments and names the others.
func writeFile(sb *strings.Builder, f map[string]interface{}) {
	name, _ := f["filename"].(string)
	mime, _ := f["mimetype"].(string)
	content, _ := f["content"].(string)

	if strings.HasPrefix(mime, "text/") {
		if decoded, err := base64.StdEncoding.DecodeString(content); err == nil {
			sb.WriteString(fmt.Sprintf("\nAttached file %s:\n%s\n", name, decoded))
			return
		}
	}
	sb.WriteString(fmt.Sprintf("\nAttached file %s (%s) is not inlined.\n", name, mime))
}

var questionsSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"questions": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"type": map[string]interface{}{
						"type": "string",
						"enum": []string{"multiple_choice", "true_false", "short_answer"},
					},
					"text": map[string]interface{}{
						"type":        "string",
						"description": "The question text",
					},
					"options": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
					"correct_answer": map[string]interface{}{
						"type":        "integer",
						"description": "0-based index of the correct option",
					},
					"explanation": map[string]interface{}{
						"type": "string",
					},
				},
				"required": []string{"type", "text"},
			},
		},
	},
	"required": []string{"questions"},
}

var resultSchemas = map[string]interface{}{
	ActionCheckInstructions: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"is_clear":    map[string]interface{}{"type": "boolean"},
			"feedback":    map[string]interface{}{"type": "string"},
			"suggestions": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		"required": []string{"is_clear", "feedback"},
	},
	ActionGenerateQuestions: questionsSchema,
	ActionAnalyzeSubmission: questionsSchema,
}
