package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/martijnmoret-ds/OrderOctopus/internal/config"
	"github.com/martijnmoret-ds/OrderOctopus/internal/domain"
)

// IntentLine is one candidate line item as proposed by the extractor. It is
// never trusted for price or availability; the catalog re-resolves it.
type IntentLine struct {
	ItemRef       string            `json:"item"`
	Quantity      int               `json:"quantity"`
	Selections    map[string]string `json:"selections"`
	Modifications []string          `json:"modifications"`
}

// Intent is the structured interpretation of one utterance.
type Intent struct {
	Candidates           []IntentLine `json:"candidates"`
	MissingOptionPrompts []string     `json:"missing_options"`
	Confidence           float64      `json:"confidence"`
}

// IntentExtractor converts free text plus menu context into a structured
// intent. Implementations return domain.ErrNoMatch when nothing on the menu
// fits the utterance.
type IntentExtractor interface {
	Extract(ctx context.Context, utterance string, snapshot []domain.MenuItem, sessionCtx map[string]string) (*Intent, error)
}

// OpenRouterExtractor backs IntentExtractor with a chat-completion model.
type OpenRouterExtractor struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOpenRouterExtractor(apiKey, model string, timeout time.Duration) *OpenRouterExtractor {
	return &OpenRouterExtractor{
		apiKey:     apiKey,
		baseURL:    "https://openrouter.ai/api/v1",
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const extractorSystemPrompt = `You convert a restaurant customer's message into order intents.
Reply with ONLY a JSON object, no prose:
{"candidates":[{"item":"<menu item name>","quantity":<int>,"selections":{"<group>":"<choice>"},"modifications":["<free text>"]}],"missing_options":["<group names the customer has not chosen>"],"confidence":<0..1>}
Use exact item and option names from the menu. If nothing on the menu matches, reply {"candidates":[],"missing_options":[],"confidence":0}.`

// Extract calls the model with the menu snapshot and retries transient
// failures with backoff. The caller bounds the whole call with a context
// timeout.
func (s *OpenRouterExtractor) Extract(ctx context.Context, utterance string, snapshot []domain.MenuItem, sessionCtx map[string]string) (*Intent, error) {
	messages := []chatMessage{
		{Role: "system", Content: extractorSystemPrompt},
		{Role: "system", Content: "MENU:\n" + MenuContext(snapshot)},
	}
	if pending := sessionCtx["pending_item"]; pending != "" {
		messages = append(messages, chatMessage{
			Role:    "system",
			Content: fmt.Sprintf("The customer is answering an option question about %q.", pending),
		})
	}
	messages = append(messages, chatMessage{Role: "user", Content: utterance})

	var lastErr error
	for attempt := 0; attempt <= config.ExtractorRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * config.ExtractorBackoff):
			}
		}

		intent, err := s.complete(ctx, messages)
		if err == nil {
			if len(intent.Candidates) == 0 && len(intent.MissingOptionPrompts) == 0 {
				return nil, domain.ErrNoMatch
			}
			return intent, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *OpenRouterExtractor) complete(ctx context.Context, messages []chatMessage) (*Intent, error) {
	payload, err := json.Marshal(chatRequest{Model: s.model, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}

	return ParseIntent(chatResp.Choices[0].Message.Content)
}

// ParseIntent decodes the model output, tolerating fenced code blocks.
func ParseIntent(content string) (*Intent, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	var intent Intent
	if err := json.Unmarshal([]byte(content), &intent); err != nil {
		return nil, fmt.Errorf("parse intent: %w", err)
	}
	for i := range intent.Candidates {
		if intent.Candidates[i].Quantity <= 0 {
			intent.Candidates[i].Quantity = 1
		}
	}
	return &intent, nil
}

// MenuContext renders a compact menu description for the model.
func MenuContext(items []domain.MenuItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s (%s) %s", item.Name, item.Category, item.BasePrice.StringFixed(2))
		for _, g := range item.OptionGroups {
			names := make([]string, len(g.Choices))
			for i, c := range g.Choices {
				names[i] = c.Name
			}
			req := ""
			if g.Required {
				req = ", required"
			}
			fmt.Fprintf(&b, " [%s%s: %s]", g.Name, req, strings.Join(names, "/"))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
