package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/epbkit/linefit/revise"
)

func TestCompressCandidates(t *testing.T) {
	c := New(Options{})
	req, err := revise.NewRequest("Trained 12 personnel and managed maintenance", revise.Range{Start: 0, End: 44}, revise.ModeCompress)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Revise(context.Background(), req)
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 candidates, got %q", got)
	}
	if got[0] != "Trained 12 pers & managed maint" {
		t.Fatalf("shortened candidate = %q", got[0])
	}
	if got[2] != req.Selection {
		t.Fatalf("last candidate should be the selection, got %q", got[2])
	}
	if c.Calls() != 1 {
		t.Fatalf("Calls = %d", c.Calls())
	}
	last, ok := c.LastRequest()
	if !ok || last.ID != req.ID {
		t.Fatalf("LastRequest = %+v, %v", last, ok)
	}
}

func TestExpandCandidates(t *testing.T) {
	got, err := New(Options{}).Revise(context.Background(), revise.Request{Selection: "Led sq trng", Mode: revise.ModeExpand})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != "Led squadron training" || got[1] != "Led sq trng" {
		t.Fatalf("unexpected candidates %q", got)
	}
}

func TestGeneralCollapsesWhitespace(t *testing.T) {
	got, err := New(Options{}).Revise(context.Background(), revise.Request{Selection: "a  b", Mode: revise.ModeGeneral})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a b" {
		t.Fatalf("unexpected candidates %q", got)
	}
}

func TestFixedAndRaw(t *testing.T) {
	got, _ := New(Options{Candidates: []string{"x"}, Raw: `["y"]`}).Revise(context.Background(), revise.Request{})
	if len(got) != 1 || got[0] != "x" {
		t.Fatalf("Candidates should win, got %q", got)
	}
	got, err := New(Options{Raw: "1. one\n2. two"}).Revise(context.Background(), revise.Request{})
	if err != nil || len(got) != 2 || got[1] != "two" {
		t.Fatalf("Raw parse = %q, %v", got, err)
	}
	_, err = New(Options{Raw: "[]"}).Revise(context.Background(), revise.Request{})
	if !errors.Is(err, revise.ErrResponseInvalid) {
		t.Fatalf("want ErrResponseInvalid, got %v", err)
	}
}

func TestInjectedErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := New(Options{Err: boom}).Revise(context.Background(), revise.Request{}); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	c := New(Options{FailFirst: 2})
	for i := 1; i <= 3; i++ {
		_, err := c.Revise(context.Background(), revise.Request{Selection: "s"})
		if i <= 2 && !errors.Is(err, ErrInjected) {
			t.Fatalf("call %d: want ErrInjected, got %v", i, err)
		}
		if i == 3 && err != nil {
			t.Fatalf("call 3 should succeed, got %v", err)
		}
	}
}

func TestDelayHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := New(Options{Delay: time.Minute}).Revise(ctx, revise.Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}
