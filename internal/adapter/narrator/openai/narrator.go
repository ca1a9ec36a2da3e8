package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"questforge/internal/app/ports"
)

const defaultCompletionsURL = "https://api.openai.com/v1/chat/completions"

// Config configures the chat-completions endpoint and HTTP behavior.
type Config struct {
	APIKey         string
	Model          string
	CompletionsURL string
	HTTPClient     *http.Client
}

// Narrator calls the external text-completion provider. Errors surface as
// ports.ErrCollaborator; the chat flow recovers with a templated reply.
type Narrator struct {
	cfg Config
}

func New(cfg Config) *Narrator {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if strings.TrimSpace(cfg.CompletionsURL) == "" {
		cfg.CompletionsURL = defaultCompletionsURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &Narrator{cfg: cfg}
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
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (n *Narrator) Reply(ctx context.Context, playerID, message string, nc ports.NarratorContext) (ports.NarratorReply, error) {
	payload := chatRequest{
		Model: n.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(nc)},
			{Role: "user", Content: message},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ports.NarratorReply{}, fmt.Errorf("%w: encode request: %v", ports.ErrCollaborator, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.CompletionsURL, bytes.NewReader(body))
	if err != nil {
		return ports.NarratorReply{}, fmt.Errorf("%w: build request: %v", ports.ErrCollaborator, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)

	resp, err := n.cfg.HTTPClient.Do(req)
	if err != nil {
		return ports.NarratorReply{}, fmt.Errorf("%w: %v", ports.ErrCollaborator, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ports.NarratorReply{}, fmt.Errorf("%w: completions status %d: %s", ports.ErrCollaborator, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.NarratorReply{}, fmt.Errorf("%w: decode response: %v", ports.ErrCollaborator, err)
	}
	if len(decoded.Choices) == 0 {
		return ports.NarratorReply{}, fmt.Errorf("%w: empty completion", ports.ErrCollaborator)
	}
	return ports.NarratorReply{Text: strings.TrimSpace(decoded.Choices[0].Message.Content)}, nil
}

func systemPrompt(nc ports.NarratorContext) string {
	var b strings.Builder
	b.WriteString("You are the narrator of a fantasy training quest. Stay in character, two sentences max.")
	fmt.Fprintf(&b, " The player is %s, rank %s, currently at the %s.", nc.DisplayName, nc.Tier, nc.Location)
	if nc.ActiveQuest != "" {
		fmt.Fprintf(&b, " Active quest: %s.", nc.ActiveQuest)
		if len(nc.OpenSteps) > 0 {
			fmt.Fprintf(&b, " Remaining steps: %s.", strings.Join(nc.OpenSteps, "; "))
		}
	}
	return b.String()
}
