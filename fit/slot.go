// Package fit 实现单条语句槽位的适配控制器：跟踪字符与可视行预算，
// 提供按行的密度切换，并把改写委托给外部模型适配器。
//
// 每个 Slot 自带互斥锁，槽位之间不共享可变状态。
package fit

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/epbkit/linefit/density"
	"github.com/epbkit/linefit/layout"
	"github.com/epbkit/linefit/revise"
)

// State 为槽位状态。
type State int

const (
	Empty    State = iota // 无文本
	Drafting              // 有文本，本轮尚未测量
	Fitting               // 已测量，超出预算
	Ready                 // 已测量，在预算内
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Drafting:
		return "drafting"
	case Fitting:
		return "fitting"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrRevisionInFlight = errors.New("fit: revision already in flight")
	ErrStaleRevision    = errors.New("fit: revision is stale")
	ErrInvalidRange     = errors.New("fit: invalid range")
	ErrClosed           = errors.New("fit: slot closed")
	ErrNoReviser        = errors.New("fit: no reviser configured")
)

// Budget 描述一个槽位的预算。任一项为 0 表示该维度不限。
type Budget struct {
	CharLimit int     `json:"charLimit" yaml:"char_limit" toml:"char_limit"`
	Lines     int     `json:"lines" yaml:"lines" toml:"lines"`
	LineWidth float64 `json:"lineWidth" yaml:"line_width" toml:"line_width"` // px
}

// Options 为可选依赖，零值可用。
type Options struct {
	Measurer layout.Measurer // 默认 layout.DefaultMeasurer()
	Reviser  revise.Reviser  // 为空时 RequestRevision 返回 ErrNoReviser
	Model    string
	// Abbreviator 供 ShortenLine/LengthenLine 使用，默认 density 内置缩写表。
	Abbreviator *density.Abbreviator
	Logger      *zap.Logger
	// OnStateChange 在状态变化后（锁外）按顺序调用。
	OnStateChange func(slot string, from, to State)
}

type transition struct{ from, to State }

// Slot 是一条语句的草稿及其派生的可视行。
type Slot struct {
	mu       sync.Mutex
	name     string
	budget   Budget
	measurer layout.Measurer
	reviser  revise.Reviser
	model    string
	abbrev   *density.Abbreviator
	logger   *zap.Logger
	onState  func(string, State, State)

	text     string
	segs     []layout.Segment
	state    State
	gen      uint64
	dirty    bool
	revising bool
	closed   bool
}

// New 创建空槽位。
func New(name string, budget Budget, opts Options) *Slot {
	s := &Slot{
		name:     name,
		budget:   budget,
		measurer: opts.Measurer,
		reviser:  opts.Reviser,
		model:    opts.Model,
		abbrev:   opts.Abbreviator,
		logger:   opts.Logger,
		onState:  opts.OnStateChange,
	}
	if s.measurer == nil {
		s.measurer = layout.DefaultMeasurer()
	}
	if s.abbrev == nil {
		s.abbrev = density.NewAbbreviator(density.DefaultAbbreviations)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("slot", name))
	return s
}

// Name 返回槽位名。
func (s *Slot) Name() string { return s.name }

// SetText 替换整段草稿（按键或模型生成的文本）并同步重算。
func (s *Slot) SetText(text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	tr := s.setLocked(text)
	s.mu.Unlock()
	s.notify(tr)
	return nil
}

// SetBudget 更换预算并重新判定状态；不视为编辑，代数不变。已关闭的槽位返回 ErrClosed。
func (s *Slot) SetBudget(b Budget) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.budget = b
	var tr []transition
	if s.text != "" {
		s.segs = layout.SegmentLines(s.text, b.LineWidth, s.measurer)
		tr = s.settleLocked()
	}
	s.mu.Unlock()
	s.notify(tr)
	return nil
}

// Text 返回当前草稿。
func (s *Slot) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// State 返回当前状态。
func (s *Slot) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Generation 返回草稿版本，每次修改文本递增。
func (s *Slot) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Dirty 报告自上次 MarkSaved 以来是否有未保存的修改。
func (s *Slot) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// MarkSaved 清除未保存标记。
func (s *Slot) MarkSaved() {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
}

// markSavedAt 仅当草稿仍处于 gen 版本时清除未保存标记。
func (s *Slot) markSavedAt(gen uint64) {
	s.mu.Lock()
	if s.gen == gen {
		s.dirty = false
	}
	s.mu.Unlock()
}

func (s *Slot) snapshot() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, s.gen
}

// IsRevising 报告是否有修订请求在途。
func (s *Slot) IsRevising() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revising
}

// Close 关闭槽位；之后的修改返回 ErrClosed，在途修订的响应被丢弃。
func (s *Slot) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// ToggleLine 对第 i 行做窄空格压缩/还原。行不存在（含补齐行）时不做任何事并返回 false。
func (s *Slot) ToggleLine(i int) (bool, error) {
	return s.rewriteLine(i, "toggle", func(seg layout.Segment) (string, error) {
		if seg.Compressed {
			return density.NormalizeRange(s.text, seg.Start, seg.End)
		}
		out, _, err := density.CompressRange(s.text, seg.Start, seg.End)
		return out, err
	})
}

// ShortenLine 把第 i 行中的词替换为标准缩写。
func (s *Slot) ShortenLine(i int) (bool, error) {
	return s.rewriteLine(i, "shorten", func(seg layout.Segment) (string, error) {
		return density.ApplyRange(s.text, seg.Start, seg.End, s.abbrev.Shorten)
	})
}

// LengthenLine 把第 i 行中的缩写还原为全称。
func (s *Slot) LengthenLine(i int) (bool, error) {
	return s.rewriteLine(i, "lengthen", func(seg layout.Segment) (string, error) {
		return density.ApplyRange(s.text, seg.Start, seg.End, s.abbrev.Lengthen)
	})
}

// rewriteLine 在锁内对单行做变换并拼回草稿；文本未变化时视为无操作。
func (s *Slot) rewriteLine(i int, op string, fn func(layout.Segment) (string, error)) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if i < 0 || i >= len(s.segs) {
		s.mu.Unlock()
		return false, nil
	}
	seg := s.segs[i]
	out, err := fn(seg)
	if err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("%s line %d: %w", op, i, err)
	}
	if out == s.text {
		s.mu.Unlock()
		return false, nil
	}
	tr := s.setLocked(out)
	s.logger.Debug("line rewritten", zap.String("op", op), zap.Int("line", i), zap.Uint64("generation", s.gen))
	s.mu.Unlock()
	s.notify(tr)
	return true, nil
}

// setLocked 写入新文本、递增版本并重算。调用方持有锁。
func (s *Slot) setLocked(text string) []transition {
	s.text = text
	s.gen++
	s.dirty = true
	var tr []transition
	if text == "" {
		s.segs = nil
		return s.moveLocked(tr, Empty)
	}
	tr = s.moveLocked(tr, Drafting)
	s.segs = layout.SegmentLines(text, s.budget.LineWidth, s.measurer)
	return append(tr, s.settleLocked()...)
}

// settleLocked 根据当前分行结果进入 Fitting 或 Ready。
// 从 Drafting 出发时总是先经过 Fitting。
func (s *Slot) settleLocked() []transition {
	var tr []transition
	if s.state == Drafting {
		tr = s.moveLocked(tr, Fitting)
	}
	r := s.reportLocked()
	if r.OverBudget {
		tr = s.moveLocked(tr, Fitting)
	} else {
		tr = s.moveLocked(tr, Ready)
	}
	s.logger.Debug("slot measured",
		zap.Stringer("state", s.state),
		zap.Int("chars", r.UsedChars),
		zap.Int("lines", r.UsedLines),
		zap.Bool("overBudget", r.OverBudget))
	return tr
}

func (s *Slot) moveLocked(tr []transition, to State) []transition {
	if s.state == to {
		return tr
	}
	tr = append(tr, transition{from: s.state, to: to})
	s.state = to
	return tr
}

func (s *Slot) notify(tr []transition) {
	if s.onState == nil {
		return
	}
	for _, t := range tr {
		s.onState(s.name, t.from, t.to)
	}
}
