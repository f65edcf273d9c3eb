package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/epbkit/linefit/revise"
)

func chatResponse(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func TestReviseParsesCandidates(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatResponse("[\"Led 5 Amn\", \"Led five Amn\"]"))
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, APIKey: "sk-test", MaxRetries: -1})
	if err != nil {
		t.Fatal(err)
	}
	req, _ := revise.NewRequest("Led five Airmen", revise.Range{Start: 0, End: 15}, revise.ModeCompress)
	req.Model = "custom-model"
	got, err := c.Revise(context.Background(), req)
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if len(got) != 2 || got[0] != "Led 5 Amn" {
		t.Fatalf("candidates = %q", got)
	}
	if !strings.HasSuffix(gotPath, "/chat/completions") {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if !strings.Contains(gotBody, "custom-model") || !strings.Contains(gotBody, "Led five Airmen") {
		t.Fatalf("request body missing model or text: %s", gotBody)
	}
}

func TestReviseUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, APIKey: "sk-test", MaxRetries: -1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Revise(context.Background(), revise.Request{Text: "x", Selection: "x"}); err == nil {
		t.Fatalf("expected error on 400")
	}
}

func TestReviseEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatResponse(""))
	}))
	defer srv.Close()

	c, _ := New(Options{BaseURL: srv.URL, APIKey: "sk-test", MaxRetries: -1})
	_, err := c.Revise(context.Background(), revise.Request{})
	if !errors.Is(err, revise.ErrResponseInvalid) {
		t.Fatalf("want ErrResponseInvalid, got %v", err)
	}
}

func TestNewRequiresKey(t *testing.T) {
	t.Setenv("LINEFIT_TEST_EMPTY_KEY", "")
	_, err := New(Options{APIKeyEnv: "LINEFIT_TEST_EMPTY_KEY"})
	if !errors.Is(err, revise.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	t.Setenv("LINEFIT_TEST_KEY", "sk-env")
	c, err := New(Options{APIKeyEnv: "LINEFIT_TEST_KEY"})
	if err != nil || c.model != DefaultModel {
		t.Fatalf("New from env = %+v, %v", c, err)
	}
}
