package fit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/epbkit/linefit/density"
	"github.com/epbkit/linefit/revise"
)

// Revision 是一次成功返回的修订：请求本身及模型给出的候选。
type Revision struct {
	Request    revise.Request
	Candidates []string
}

// Result 是异步修订的结果，Revision 与 Err 恰有一个非空。
type Result struct {
	Revision *Revision
	Err      error
}

// RequestRevision 针对选区 r 向模型请求改写候选，期间不修改草稿。
//
// 同一槽位同时只允许一个在途请求（否则 ErrRevisionInFlight）。适配器失败时返回包装了
// revise.ErrRevisionFailed 的错误，草稿保持不变；响应返回时若草稿已变化或槽位已关闭，
// 返回 ErrStaleRevision 并丢弃候选。
func (s *Slot) RequestRevision(ctx context.Context, r revise.Range, mode revise.Mode, instruction string) (*Revision, error) {
	req, err := s.beginRevision(r, mode, instruction)
	if err != nil {
		return nil, err
	}
	return s.finishRevision(ctx, req)
}

// RequestRevisionAsync 与 RequestRevision 相同，但在后台调用适配器。
// 在途标记在返回前已设置；通道恰好收到一个结果后关闭。
func (s *Slot) RequestRevisionAsync(ctx context.Context, r revise.Range, mode revise.Mode, instruction string) <-chan Result {
	ch := make(chan Result, 1)
	req, err := s.beginRevision(r, mode, instruction)
	if err != nil {
		ch <- Result{Err: err}
		close(ch)
		return ch
	}
	go func() {
		defer close(ch)
		rev, err := s.finishRevision(ctx, req)
		ch <- Result{Revision: rev, Err: err}
	}()
	return ch
}

func (s *Slot) beginRevision(r revise.Range, mode revise.Mode, instruction string) (revise.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return revise.Request{}, ErrClosed
	case s.reviser == nil:
		return revise.Request{}, ErrNoReviser
	case s.revising:
		return revise.Request{}, ErrRevisionInFlight
	}
	if !mode.Valid() {
		return revise.Request{}, fmt.Errorf("%w: unknown mode %q", revise.ErrInvalidInput, mode)
	}
	req, err := revise.NewRequest(s.text, r, mode)
	if err != nil {
		return revise.Request{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	req.Instruction = instruction
	req.Model = s.model
	req.Generation = s.gen
	if limit := s.budget.CharLimit; limit > 0 {
		// 选区可用字符数：上限减去选区外已用字符
		room := limit - (UsedChars(s.text) - UsedChars(req.Selection))
		if room < 1 {
			room = 1
		}
		req.MaxChars = room
	}
	s.revising = true
	s.logger.Debug("revision requested",
		zap.String("id", req.ID),
		zap.String("mode", string(req.Mode)),
		zap.Int("start", r.Start),
		zap.Int("end", r.End),
		zap.Uint64("generation", req.Generation))
	return req, nil
}

func (s *Slot) finishRevision(ctx context.Context, req revise.Request) (*Revision, error) {
	cands, callErr := s.callReviser(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.revising = false
	if callErr != nil {
		s.logger.Warn("revision failed", zap.String("id", req.ID), zap.Error(callErr))
		return nil, fmt.Errorf("%w: %w", revise.ErrRevisionFailed, callErr)
	}
	if s.closed || s.gen != req.Generation {
		s.logger.Info("revision discarded",
			zap.String("id", req.ID),
			zap.Uint64("requested", req.Generation),
			zap.Uint64("current", s.gen),
			zap.Bool("closed", s.closed))
		return nil, ErrStaleRevision
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: %w", revise.ErrRevisionFailed, revise.ErrResponseInvalid)
	}
	return &Revision{Request: req, Candidates: cands}, nil
}

// callReviser 调用适配器，把 panic 转为错误。
func (s *Slot) callReviser(ctx context.Context, req revise.Request) (out []string, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("reviser panic: %v", p)
		}
	}()
	return s.reviser.Revise(ctx, req)
}

// ApplyCandidate 用 text 替换 rev 记录的选区并重算。
// 草稿自请求以来有过修改时返回 ErrStaleRevision。
func (s *Slot) ApplyCandidate(rev *Revision, text string) error {
	if rev == nil {
		return fmt.Errorf("%w: nil revision", ErrInvalidRange)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if rev.Request.Generation != s.gen {
		s.mu.Unlock()
		return ErrStaleRevision
	}
	r := rev.Request.Range
	out, err := density.Splice(s.text, r.Start, r.End, text)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	tr := s.setLocked(out)
	s.logger.Debug("candidate applied", zap.String("id", rev.Request.ID), zap.Uint64("generation", s.gen))
	s.mu.Unlock()
	s.notify(tr)
	return nil
}
