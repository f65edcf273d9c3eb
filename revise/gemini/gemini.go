// Package gemini 通过 google.golang.org/genai 实现 revise.Reviser。
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"

	"github.com/epbkit/linefit/revise"
)

// DefaultModel 为未配置时使用的模型。
const DefaultModel = "gemini-2.5-flash"

// Options: 最小必需配置。
type Options struct {
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	Model     string `yaml:"model" toml:"model"`
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
	APIKey    string `yaml:"api_key" toml:"api_key"`
}

func (o *Options) defaults() {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.APIKeyEnv == "" {
		o.APIKeyEnv = "GEMINI_API_KEY"
	}
}

// Client 实现 revise.Reviser。
type Client struct {
	client *genai.Client
	model  string
}

// New 创建 genai 客户端（Gemini API 后端）。
func New(ctx context.Context, o Options) (*Client, error) {
	o.defaults()
	key := o.APIKey
	if key == "" {
		key = os.Getenv(o.APIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("gemini: %w: missing api key (%s)", revise.ErrInvalidInput, o.APIKeyEnv)
	}
	cfg := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if o.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{client: client, model: o.Model}, nil
}

// Revise 单次调用 GenerateContent，要求 JSON 输出并解析为候选。
func (c *Client) Revise(ctx context.Context, req revise.Request) ([]string, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	p, err := revise.BuildPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	resp, err := c.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(p.User, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
			ResponseMIMEType:  "application/json",
		})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: %w: empty response", revise.ErrResponseInvalid)
	}
	return revise.ParseCandidates(text)
}
