// Package revise 定义适配控制器与外部大模型之间的边界：修订请求、候选结果与错误分类。
// 具体的模型调用在子包（openai、gemini、mock）中实现。
package revise

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Mode 为修订方式。
type Mode string

const (
	ModeExpand   Mode = "expand"   // 扩写，候选通常比原文长
	ModeCompress Mode = "compress" // 缩写，候选通常比原文短
	ModeGeneral  Mode = "general"  // 改写，长度接近原文
)

// 最小错误分类（用于上层策略判定）。
var (
	ErrRevisionFailed  = errors.New("revision failed")
	ErrResponseInvalid = errors.New("response invalid")
	ErrInvalidInput    = errors.New("invalid input")
)

// ParseMode 解析修订方式，"rephrase" 与空串视为 general。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expand":
		return ModeExpand, nil
	case "compress", "shorten":
		return ModeCompress, nil
	case "", "general", "rephrase":
		return ModeGeneral, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, s)
	}
}

// Valid 判断是否为已知的修订方式，空串视为 general。
func (m Mode) Valid() bool {
	switch m {
	case "", ModeExpand, ModeCompress, ModeGeneral:
		return true
	}
	return false
}

// Range 为 rune 下标区间（左闭右开）。
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len 返回区间长度。
func (r Range) Len() int { return r.End - r.Start }

// Within 判断区间是否落在长度为 n 的文本内。
func (r Range) Within(n int) bool { return r.Start >= 0 && r.Start <= r.End && r.End <= n }

// Request 是发给模型适配器的修订请求。
// Generation 记录请求发出时语句的版本，响应返回时据此判断是否过期。
type Request struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Selection   string `json:"selection"`
	Range       Range  `json:"range"`
	Mode        Mode   `json:"mode"`
	Instruction string `json:"instruction,omitempty"`
	Model       string `json:"model,omitempty"`
	MaxChars    int    `json:"maxChars,omitempty"` // 选区可用的字符数，0 表示不限
	Generation  uint64 `json:"generation"`
}

// NewRequest 校验修订方式与选区并生成请求，选区文本取自 text。
func NewRequest(text string, r Range, mode Mode) (Request, error) {
	if !mode.Valid() {
		return Request{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, mode)
	}
	runes := []rune(text)
	if !r.Within(len(runes)) {
		return Request{}, fmt.Errorf("%w: range [%d,%d) outside text of %d runes", ErrInvalidInput, r.Start, r.End, len(runes))
	}
	if mode == "" {
		mode = ModeGeneral
	}
	return Request{
		ID:        uuid.NewString(),
		Text:      text,
		Selection: string(runes[r.Start:r.End]),
		Range:     r,
		Mode:      mode,
	}, nil
}

// Reviser 与大模型交互，返回有序的候选替换文本（至少一条）。
// 单次调用、同步返回；应尊重 ctx 取消/超时。
type Reviser interface {
	Revise(ctx context.Context, req Request) ([]string, error)
}

// Func 让普通函数满足 Reviser 接口。
type Func func(ctx context.Context, req Request) ([]string, error)

func (f Func) Revise(ctx context.Context, req Request) ([]string, error) { return f(ctx, req) }
