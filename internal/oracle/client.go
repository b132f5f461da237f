package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	maxRetries     = 3
	initialDelay   = 1 * time.Second
)

const selectSystemPrompt = `You are a daily planning assistant. From the candidate tasks pick the ones the user should focus on today. Prioritize overdue tasks and tasks due today. When the backlog is large, cap the selection at 3-5 tasks so the user is not overwhelmed. Mix difficulty levels and order the list for momentum (hardest-first or easiest-first, your call). Respond with JSON only: {"task_ids": ["..."], "reasoning": "one or two sentences"}.`

const summarizeSystemPrompt = `You are a daily planning assistant. Write one short, encouraging check-in message (at most two sentences) about the user's task list. Plain text, no markdown.`

// Client calls an OpenAI-compatible chat completions endpoint with typed
// request/response contracts and a hard per-call timeout.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient creates an oracle client. Empty model/baseURL fall back to the
// package defaults; timeout <= 0 means 20s.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SelectFocusTasks asks the oracle for today's plan. Ids not present in the
// candidate set are dropped, repeated ids keep only their first occurrence;
// an empty validated selection is an error so the
// caller takes its fallback path, same as a timeout.
func (c *Client) SelectFocusTasks(ctx context.Context, candidates []TaskSummary, tc TimeContext) (*FocusSelection, error) {
	if len(candidates) == 0 {
		return &FocusSelection{}, nil
	}

	payload := struct {
		Candidates  []TaskSummary `json:"candidates"`
		TimeContext TimeContext   `json:"time_context"`
	}{candidates, tc}
	user, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}

	content, err := c.complete(ctx, selectSystemPrompt, string(user))
	if err != nil {
		return nil, err
	}

	var selection FocusSelection
	if err := json.Unmarshal([]byte(extractJSON(content)), &selection); err != nil {
		return nil, fmt.Errorf("malformed selection response: %w", err)
	}

	known := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		known[cand.ID] = true
	}
	valid := selection.TaskIDs[:0]
	for _, id := range selection.TaskIDs {
		if !known[id] {
			continue
		}
		// Clearing the entry also drops repeats of the same id.
		delete(known, id)
		valid = append(valid, id)
	}
	selection.TaskIDs = valid
	if len(selection.TaskIDs) == 0 {
		return nil, fmt.Errorf("selection contained no known task ids")
	}
	return &selection, nil
}

// SummarizeStatus produces a short advisory message for a check-in.
func (c *Client) SummarizeStatus(ctx context.Context, items []StatusItem, timeOfDay string) (string, error) {
	payload := struct {
		Tasks     []StatusItem `json:"tasks"`
		TimeOfDay string       `json:"time_of_day"`
	}{items, timeOfDay}
	user, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal status items: %w", err)
	}

	content, err := c.complete(ctx, summarizeSystemPrompt, string(user))
	if err != nil {
		return "", err
	}
	message := strings.TrimSpace(content)
	if message == "" {
		return "", fmt.Errorf("empty summary response")
	}
	return message, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("oracle api key not set")
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	delay := initialDelay
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		content, retryable, err := c.doRequest(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("oracle request failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) doRequest(ctx context.Context, body []byte) (content string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			err = fmt.Errorf("oracle error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		} else {
			err = fmt.Errorf("oracle error (%d)", resp.StatusCode)
		}
		retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", false, fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("response contained no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}

// extractJSON strips markdown code fences some models wrap around JSON.
func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}
