// Package advisory asks a text-generation service for a short budgeting tip.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"nzql/internal/core"
)

// ErrNoAPIKey is returned when the client has no credentials.
var ErrNoAPIKey = errors.New("advisor API key not configured")

// maxPromptTransactions bounds how much history is sent.
const maxPromptTransactions = 30

// Request carries what the advice is based on.
type Request struct {
	Month        core.Month
	Budget       float64
	Spent        float64
	Transactions []core.Transaction
}

// Client calls a generateContent endpoint.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an advisory client. A nil httpClient uses
// http.DefaultClient.
func NewClient(baseURL, model, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Advise returns the generated advice text.
func (c *Client) Advise(ctx context.Context, in Request) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: BuildPrompt(in)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling advice request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting advice: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var result generateResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && result.Error != nil && result.Error.Message != "" {
			return "", fmt.Errorf("requesting advice: status %d: %s", resp.StatusCode, result.Error.Message)
		}
		return "", fmt.Errorf("requesting advice: unexpected status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decoding advice response: %w", decodeErr)
	}

	var sb strings.Builder
	for _, cand := range result.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("advice response had no text")
	}
	return text, nil
}

// BuildPrompt renders the instruction and the most recent transactions.
func BuildPrompt(in Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "你是一位理財顧問。本月（%s）預算 %.0f 元，目前已支出 %.0f 元", in.Month, in.Budget, in.Spent)
	if in.Budget > 0 {
		fmt.Fprintf(&sb, "，約佔預算 %.0f%%", in.Spent/in.Budget*100)
	}
	sb.WriteString("。請根據以下近期交易，用繁體中文給一句不超過 50 字的具體理財建議。\n")

	txs := in.Transactions
	if len(txs) > maxPromptTransactions {
		txs = txs[len(txs)-maxPromptTransactions:]
	}
	for _, t := range txs {
		fmt.Fprintf(&sb, "- %s %s %.0f %s\n", t.Date, t.Type, t.Amount, t.Note)
	}
	return sb.String()
}
