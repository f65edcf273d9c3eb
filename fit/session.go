package fit

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/epbkit/linefit/draftstore"
)

// Session 把若干槽位按会话键保存到 draftstore。槽位本身仍各自独立加锁。
type Session struct {
	Key string

	store draftstore.Store
	mu    sync.Mutex
	slots []*Slot
}

// NewSession 创建会话；key 为空时生成随机键。
func NewSession(key string, store draftstore.Store) *Session {
	if key == "" {
		key = uuid.NewString()
	}
	if store == nil {
		store = draftstore.NewMemory()
	}
	return &Session{Key: key, store: store}
}

// Add 追加槽位，同名槽位被替换。
func (s *Session) Add(slot *Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.slots {
		if existing.Name() == slot.Name() {
			s.slots[i] = slot
			return
		}
	}
	s.slots = append(s.slots, slot)
}

// Slot 按名称查找槽位。
func (s *Session) Slot(name string) (*Slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.slots {
		if slot.Name() == name {
			return slot, true
		}
	}
	return nil, false
}

// Slots 返回全部槽位（按添加顺序）。
func (s *Session) Slots() []*Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Slot(nil), s.slots...)
}

// Dirty 报告是否有槽位存在未保存修改。
func (s *Session) Dirty() bool {
	for _, slot := range s.Slots() {
		if slot.Dirty() {
			return true
		}
	}
	return false
}

// Save 保存全部槽位文本；保存期间又被修改的槽位保持未保存状态。
func (s *Session) Save(ctx context.Context) error {
	slots := s.Slots()
	snap := draftstore.Snapshot{Key: s.Key, Drafts: make([]draftstore.Draft, 0, len(slots))}
	gens := make([]uint64, len(slots))
	for i, slot := range slots {
		text, gen := slot.snapshot()
		gens[i] = gen
		snap.Drafts = append(snap.Drafts, draftstore.Draft{Slot: slot.Name(), Text: text})
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save session %s: %w", s.Key, err)
	}
	for i, slot := range slots {
		slot.markSavedAt(gens[i])
	}
	return nil
}

// Restore 从存储加载文本到同名槽位；未知槽位忽略。没有保存记录时返回 draftstore.ErrNotFound。
func (s *Session) Restore(ctx context.Context) error {
	snap, err := s.store.Load(ctx, s.Key)
	if err != nil {
		return fmt.Errorf("restore session %s: %w", s.Key, err)
	}
	for _, slot := range s.Slots() {
		text, ok := snap.Text(slot.Name())
		if !ok {
			continue
		}
		if err := slot.SetText(text); err != nil {
			return fmt.Errorf("restore slot %s: %w", slot.Name(), err)
		}
		slot.MarkSaved()
	}
	return nil
}

// Clear 删除会话的保存记录，不影响内存中的槽位。
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx, s.Key); err != nil {
		return fmt.Errorf("clear session %s: %w", s.Key, err)
	}
	return nil
}
