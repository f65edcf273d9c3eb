package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/epbkit/linefit/config"
	"github.com/epbkit/linefit/draftstore"
)

const (
	scenarioA = "Led 12 Airmen through UCI prep, resulting in 98% pass rate and zero discrepancies across three squadrons."
	// 在 1206 标准行宽下折成三行
	longStatement = "Led 12 Airmen through UCI prep, resulting in 98% pass rate and zero discrepancies across three squadrons; " +
		"managed $2.1M equipment account with 100% accountability and trained 4 personnel on new procedures, " +
		"cutting repair time by 18% for the wing"
)

const quietConfig = "store:\n  driver: memory\nlog:\n  level: error\n"

func execute(t *testing.T, cfgBody, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "linefit.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgBody), 0o644))

	root := newRootCmd(strings.NewReader(stdin))
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestForms(t *testing.T) {
	out, _, err := execute(t, quietConfig, "", "forms")
	require.NoError(t, err)
	assert.Contains(t, out, "AF1206")
	assert.Contains(t, out, "EPB")
	assert.Contains(t, out, "350")
}

func TestMeasure(t *testing.T) {
	out, _, err := execute(t, quietConfig, "", "measure", "Led", "12", "Airmen")
	require.NoError(t, err)
	assert.Contains(t, out, " px")
	assert.Contains(t, out, "13 字符")
}

func TestSegmentPrintsRowsAndDebugJSON(t *testing.T) {
	debugPath := filepath.Join(t.TempDir(), "debug", "segments.json")
	out, _, err := execute(t, quietConfig, scenarioA, "segment", "--debug", debugPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3, "header plus two rows:\n%s", out)
	assert.Contains(t, lines[2], "squadrons.")

	data, err := os.ReadFile(debugPath)
	require.NoError(t, err)
	var dump struct {
		Budget float64          `json:"budget"`
		Lines  []map[string]any `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(data, &dump))
	assert.Equal(t, 680.0, dump.Budget)
	require.Len(t, dump.Lines, 2)
	assert.EqualValues(t, 95, dump.Lines[1]["start"])
}

func TestSegmentWidthOverride(t *testing.T) {
	out, _, err := execute(t, quietConfig, scenarioA, "segment", "--width", "0.5")
	require.NoError(t, err)
	// 每个词独占一行，且都标记为溢出
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(strings.Fields(scenarioA))+1)
	for _, line := range lines[1:] {
		assert.Equal(t, "o", strings.Fields(line)[4], line)
	}
}

func TestFitBatch(t *testing.T) {
	path := writeTemp(t, "statements.txt", scenarioA+"\n\n"+longStatement+"\n")
	out, _, err := execute(t, quietConfig, "", "fit", "--each-line", path)
	require.NoError(t, err)
	assert.Contains(t, out, path+":1")
	assert.Contains(t, out, path+":3")
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, "超出 1 行")

	_, _, err = execute(t, quietConfig, "", "fit", "--each-line", "--strict", path)
	assert.ErrorIs(t, err, errOverBudget)
}

func TestFitJSON(t *testing.T) {
	out, _, err := execute(t, quietConfig, longStatement, "--form", "EPB", "fit", "--json")
	require.NoError(t, err)
	var entries []struct {
		Name   string `json:"name"`
		Report struct {
			UsedChars  int  `json:"usedChars"`
			CharLimit  int  `json:"charLimit"`
			OverBudget bool `json:"overBudget"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "stdin", entries[0].Name)
	assert.Equal(t, 245, entries[0].Report.UsedChars)
	assert.Equal(t, 350, entries[0].Report.CharLimit)
	assert.False(t, entries[0].Report.OverBudget)
}

func TestToggleLine(t *testing.T) {
	out, errOut, err := execute(t, quietConfig, scenarioA, "toggle", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "\u2009")
	assert.Contains(t, errOut, "statement")

	// 再次切换恢复原文
	back, _, err := execute(t, quietConfig, strings.TrimRight(out, "\n"), "toggle", "0")
	require.NoError(t, err)
	assert.Equal(t, scenarioA+"\n", back)
}

func TestToggleMissingLine(t *testing.T) {
	out, errOut, err := execute(t, quietConfig, scenarioA, "toggle", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "\u2009")

	out, errOut, err = execute(t, quietConfig, scenarioA, "toggle", "5")
	require.NoError(t, err)
	assert.Equal(t, scenarioA+"\n", out)
	assert.Contains(t, errOut, "没有可调整的内容")

	_, _, err = execute(t, quietConfig, scenarioA, "toggle", "x")
	assert.Error(t, err)
}

func TestShortenLine(t *testing.T) {
	out, _, err := execute(t, quietConfig, "Trained 12 personnel and managed maintenance", "shorten", "0")
	require.NoError(t, err)
	assert.Equal(t, "Trained 12 pers & managed maint\n", out)
}

func TestReviseWithMockProvider(t *testing.T) {
	text := "Trained 12 personnel and managed maintenance"
	out, _, err := execute(t, quietConfig, text, "revise", "--mode", "compress")
	require.NoError(t, err)
	assert.Contains(t, out, "Trained 12 pers & managed maint")
	assert.Contains(t, out, "是")

	out, _, err = execute(t, quietConfig, text, "revise", "--mode", "compress", "--apply", "1")
	require.NoError(t, err)
	assert.Equal(t, "Trained 12 pers & managed maint\n", out)

	_, _, err = execute(t, quietConfig, text, "revise", "--apply", "9")
	assert.ErrorContains(t, err, "超出范围")

	_, _, err = execute(t, quietConfig, text, "revise", "--mode", "poem")
	assert.Error(t, err)
}

func TestDraftShowAndClear(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "drafts.db")
	store, err := draftstore.OpenSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), draftstore.Snapshot{
		Key:    "award-q3",
		Drafts: []draftstore.Draft{{Slot: "statement", Text: scenarioA}},
	}))
	require.NoError(t, store.Close())

	cfg := "store:\n  driver: sqlite\n  path: " + dbPath + "\nlog:\n  level: error\n"
	out, _, err := execute(t, cfg, "", "draft", "show", "award-q3")
	require.NoError(t, err)
	assert.Contains(t, out, "squadrons.")

	_, _, err = execute(t, cfg, "", "draft", "clear", "award-q3")
	require.NoError(t, err)
	_, _, err = execute(t, cfg, "", "draft", "show", "award-q3")
	assert.ErrorContains(t, err, "award-q3")
}

func TestUnknownFormFails(t *testing.T) {
	_, _, err := execute(t, quietConfig, "x", "--form", "DD214", "measure")
	assert.Error(t, err)
}

func TestReadStatements(t *testing.T) {
	a := &app{stdin: strings.NewReader("one\r\n\n  \ntwo\n")}
	items, err := a.readStatements(nil, true)
	require.NoError(t, err)
	assert.Equal(t, []statement{{Name: "stdin:1", Text: "one"}, {Name: "stdin:4", Text: "two"}}, items)

	a = &app{stdin: strings.NewReader("whole text\n")}
	items, err = a.readStatements(nil, false)
	require.NoError(t, err)
	assert.Equal(t, []statement{{Name: "stdin", Text: "whole text"}}, items)
}

func TestTableAlignsWideText(t *testing.T) {
	var buf bytes.Buffer
	tb := newTable("槽位", "v")
	tb.add("ab", "y")
	require.NoError(t, tb.render(&buf))
	assert.Equal(t, "槽位  v\nab    y\n", buf.String())
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "json"}, false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = newLogger(config.LogConfig{Level: "warn", Format: "console"}, true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger(config.LogConfig{Level: "loud", Format: "json"}, false)
	assert.Error(t, err)
}

func TestWatchLoopReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statement.txt")
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(path, []byte("draft"), 0o644))

	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(dir))

	reloaded := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	a := &app{logger: zap.NewNop()}
	go func() {
		done <- a.watchLoop(ctx, w, path, 10*time.Millisecond, func() error {
			select {
			case reloaded <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	select {
	case <-reloaded:
		t.Fatal("writes to other files must not trigger a reload")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("draft, revised"), 0o644))
	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	cancel()
	require.NoError(t, <-done)
}
