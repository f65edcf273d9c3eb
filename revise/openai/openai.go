// Package openai 通过官方 openai-go SDK（chat completions）实现 revise.Reviser。
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/epbkit/linefit/revise"
)

// Options: 最小必需配置。
type Options struct {
	BaseURL    string `yaml:"base_url" toml:"base_url"`       // 为空使用 SDK 默认地址
	Model      string `yaml:"model" toml:"model"`             // 为空则使用默认
	APIKeyEnv  string `yaml:"api_key_env" toml:"api_key_env"` // 优先从环境变量读取
	APIKey     string `yaml:"api_key" toml:"api_key"`         // 明文传入（仅用于测试）
	MaxRetries int    `yaml:"max_retries" toml:"max_retries"` // <0 表示不重试
}

// DefaultModel 为未配置时使用的模型。
const DefaultModel = "gpt-4.1-mini"

func (o *Options) defaults() {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.APIKeyEnv == "" {
		o.APIKeyEnv = "OPENAI_API_KEY"
	}
}

// Client 实现 revise.Reviser。
type Client struct {
	model string
	opts  []option.RequestOption
}

// New 校验配置并构造客户端；缺少 API key 时返回 ErrInvalidInput。
func New(o Options) (*Client, error) {
	o.defaults()
	key := o.APIKey
	if key == "" {
		key = os.Getenv(o.APIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("openai: %w: missing api key (%s)", revise.ErrInvalidInput, o.APIKeyEnv)
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if o.MaxRetries < 0 {
		opts = append(opts, option.WithMaxRetries(0))
	} else if o.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(o.MaxRetries))
	}
	return &Client{model: o.Model, opts: opts}, nil
}

// Revise 单次调用，同步返回候选；请求中的 Model 覆盖默认模型。
func (c *Client) Revise(ctx context.Context, req revise.Request) ([]string, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	p, err := revise.BuildPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	client := openai.NewClient(c.opts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai: %w: empty choices", revise.ErrResponseInvalid)
	}
	return revise.ParseCandidates(resp.Choices[0].Message.Content)
}
