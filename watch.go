package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/epbkit/linefit/draftstore"
	"github.com/epbkit/linefit/fit"
)

func (a *app) watchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "监视语句文件，每次保存后重新计算用量并写入草稿库",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			store, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			slot, err := a.newSlot(p, fit.Options{
				OnStateChange: func(name string, from, to fit.State) {
					a.logger.Debug("slot state changed",
						zap.String("slot", name),
						zap.Stringer("from", from),
						zap.Stringer("to", to))
				},
			})
			if err != nil {
				return err
			}
			defer slot.Close()
			sess := fit.NewSession(path, store)
			sess.Add(slot)

			out := cmd.OutOrStdout()
			reload := func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if err := slot.SetText(strings.TrimRight(string(data), "\r\n")); err != nil {
					return err
				}
				fmt.Fprintf(out, "\n[%s]\n", time.Now().Format(time.TimeOnly))
				if err := writeReport(out, slot.Report()); err != nil {
					return err
				}
				if sess.Dirty() {
					return sess.Save(cmd.Context())
				}
				return nil
			}
			if err := reload(); err != nil {
				return err
			}

			w, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("创建文件监视失败: %w", err)
			}
			defer w.Close()
			// 监视所在目录：编辑器常以重命名方式覆盖文件
			if err := w.Add(filepath.Dir(path)); err != nil {
				return fmt.Errorf("监视 %s 失败: %w", filepath.Dir(path), err)
			}
			a.logger.Info("watching", zap.String("path", path), zap.String("session", sess.Key))
			return a.watchLoop(cmd.Context(), w, path, debounce, reload)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 150*time.Millisecond, "合并连续写入的等待时间")
	return cmd
}

// watchLoop 在 target 被写入或重新创建后调用 reload；ctx 结束时返回 nil。
func (a *app) watchLoop(ctx context.Context, w *fsnotify.Watcher, target string, debounce time.Duration, reload func() error) error {
	target = filepath.Clean(target)
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				fire = time.After(debounce)
			}
		case <-fire:
			fire = nil
			if err := reload(); err != nil {
				a.logger.Warn("reload failed", zap.String("path", target), zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (a *app) draftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "查看或清除草稿库中的草稿",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <key>",
		Short: "输出某个会话保存的草稿",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()
			snap, err := store.Load(cmd.Context(), sessionKey(args[0]))
			if errors.Is(err, draftstore.ErrNotFound) {
				return fmt.Errorf("没有找到会话 %q 的草稿", args[0])
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", snap.Key, snap.SavedAt.Local().Format(time.DateTime))
			t := newTable("槽位", "字符", "文本")
			for _, d := range snap.Drafts {
				t.add(d.Slot, fmt.Sprint(fit.UsedChars(d.Text)), visible(d.Text))
			}
			return t.render(out)
		},
	}, &cobra.Command{
		Use:   "clear <key>",
		Short: "删除某个会话保存的草稿",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()
			return store.Clear(cmd.Context(), sessionKey(args[0]))
		},
	})
	return cmd
}

// sessionKey 与 watch 保持一致：存在的文件路径换算为绝对路径，其余原样使用。
func sessionKey(arg string) string {
	if _, err := os.Stat(arg); err == nil {
		if abs, err := filepath.Abs(arg); err == nil {
			return abs
		}
	}
	return arg
}
