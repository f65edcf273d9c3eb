// Package mock 提供不调用外部模型的 Reviser，用于测试与离线调试。
package mock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/epbkit/linefit/density"
	"github.com/epbkit/linefit/revise"
)

// ErrInjected 为 FailFirst 注入的默认错误。
var ErrInjected = errors.New("mock: injected failure")

// Options: 全部可选。
type Options struct {
	// Raw 非空时作为模型原始输出交给 revise.ParseCandidates。
	Raw string
	// Candidates 非空时原样返回（优先于 Raw）。
	Candidates []string
	// Err 非空时每次调用都返回该错误。
	Err error
	// FailFirst 前 N 次调用返回 ErrInjected，之后正常。
	FailFirst int
	// Delay 模拟网络延迟，期间响应 ctx 取消。
	Delay time.Duration
	// Panic 为 true 时调用直接 panic（测试上层恢复逻辑）。
	Panic bool
}

// Client 是确定性的 Reviser：
// compress 返回缩写/窄空格版本，expand 返回展开缩写的版本，general 原样返回选区。
type Client struct {
	opts  Options
	calls atomic.Int64
	last  atomic.Pointer[revise.Request]
}

// New 构造 mock 客户端。
func New(opts Options) *Client {
	return &Client{opts: opts}
}

// Calls 返回累计调用次数。
func (c *Client) Calls() int { return int(c.calls.Load()) }

// LastRequest 返回最近一次收到的请求。
func (c *Client) LastRequest() (revise.Request, bool) {
	p := c.last.Load()
	if p == nil {
		return revise.Request{}, false
	}
	return *p, true
}

func (c *Client) Revise(ctx context.Context, req revise.Request) ([]string, error) {
	n := c.calls.Add(1)
	c.last.Store(&req)
	if c.opts.Panic {
		panic("mock: panic requested")
	}
	if c.opts.Delay > 0 {
		t := time.NewTimer(c.opts.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if c.opts.Err != nil {
		return nil, c.opts.Err
	}
	if int(n) <= c.opts.FailFirst {
		return nil, fmt.Errorf("call %d: %w", n, ErrInjected)
	}
	if len(c.opts.Candidates) > 0 {
		return append([]string(nil), c.opts.Candidates...), nil
	}
	if c.opts.Raw != "" {
		return revise.ParseCandidates(c.opts.Raw)
	}
	return candidatesFor(req), nil
}

func candidatesFor(req revise.Request) []string {
	sel := req.Selection
	var out []string
	switch req.Mode {
	case revise.ModeCompress:
		short := density.Shorten(sel)
		packed, _ := density.Compress(short)
		out = append(out, short, packed)
	case revise.ModeExpand:
		out = append(out, density.Lengthen(sel))
	default:
		out = append(out, strings.Join(strings.Fields(sel), " "))
	}
	out = append(out, sel)
	return uniq(out)
}

func uniq(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
