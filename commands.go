package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/epbkit/linefit/fit"
	"github.com/epbkit/linefit/form"
	"github.com/epbkit/linefit/layout"
)

func (a *app) formsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "列出可用表单及其槽位预算",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles := form.Builtins()
			if a.cfg.FormFile != "" {
				extra, err := form.LoadFile(a.cfg.FormFile)
				if err != nil {
					return err
				}
				profiles = append(extra, profiles...)
			}
			t := newTable("表单", "槽位", "字符", "行", "行宽", "标题")
			for _, p := range profiles {
				for _, s := range p.Slots {
					t.add(p.Name, s.Name, limit(s.Budget.CharLimit), limit(s.Budget.Lines),
						strconv.FormatFloat(s.Budget.LineWidth, 'f', -1, 64), p.Title)
				}
			}
			return t.render(cmd.OutOrStdout())
		},
	}
}

func limit(n int) string {
	if n <= 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func (a *app) measureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "measure [text...]",
		Short: "测量单行文本在表单字体下的宽度（px）",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readText(args)
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			m, err := p.Measurer()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.2f px  %d 字符  行宽 %g px\n",
				m.MeasureWidth(text), fit.UsedChars(text), p.LineWidth)
			return err
		},
	}
}

func (a *app) segmentCmd() *cobra.Command {
	var (
		width     float64
		debugPath string
	)
	cmd := &cobra.Command{
		Use:   "segment [text...]",
		Short: "按行宽折行并输出每一行的位置",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readText(args)
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			m, err := p.Measurer()
			if err != nil {
				return err
			}
			if width <= 0 {
				b, err := a.budget(p)
				if err != nil {
					return err
				}
				width = b.LineWidth
			}
			segs := layout.SegmentLines(text, width, m)
			if debugPath != "" {
				if err := layout.WriteDebugJSON(layout.NewDebugDump(text, width, segs), debugPath); err != nil {
					return err
				}
			}
			rows := make([]fit.Row, len(segs))
			for i, s := range segs {
				rows[i] = fit.Row{Index: i, Exists: true, Segment: s}
			}
			return writeRows(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().Float64VarP(&width, "width", "w", 0, "行宽（px），默认取槽位行宽")
	cmd.Flags().StringVar(&debugPath, "debug", "", "将折行结果输出为 JSON")
	return cmd
}

// statement 为批量处理中的一条语句。
type statement struct {
	Name string
	Text string
}

// readStatements 读取文件（无参数时读取标准输入）。eachLine 为 true 时每个非空行是一条语句。
func (a *app) readStatements(args []string, eachLine bool) ([]statement, error) {
	type source struct {
		name string
		data string
	}
	var sources []source
	if len(args) == 0 {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("读取标准输入失败: %w", err)
		}
		sources = append(sources, source{"stdin", string(data)})
	}
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("无法读取语句文件 %s: %w", path, err)
		}
		sources = append(sources, source{path, string(data)})
	}

	var out []statement
	for _, src := range sources {
		if !eachLine {
			out = append(out, statement{Name: src.name, Text: strings.TrimRight(src.data, "\r\n")})
			continue
		}
		for i, line := range strings.Split(src.data, "\n") {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			out = append(out, statement{Name: fmt.Sprintf("%s:%d", src.name, i+1), Text: line})
		}
	}
	return out, nil
}

// fitAll 并发计算每条语句的用量，结果与输入顺序一致。
func (a *app) fitAll(cmd *cobra.Command, p *form.Profile, items []statement, opts fit.Options, jobs int) ([]fit.Report, error) {
	if opts.Measurer == nil {
		m, err := p.Measurer()
		if err != nil {
			return nil, err
		}
		opts.Measurer = m
	}
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	reports := make([]fit.Report, len(items))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for i, it := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slot, err := a.newSlot(p, opts)
			if err != nil {
				return err
			}
			defer slot.Close()
			if err := slot.SetText(it.Text); err != nil {
				return fmt.Errorf("%s: %w", it.Name, err)
			}
			reports[i] = slot.Report()
			a.logger.Debug("statement fitted",
				zap.String("name", it.Name),
				zap.Int("chars", reports[i].UsedChars),
				zap.Int("lines", reports[i].UsedLines))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// errOverBudget 在 --strict 下有语句超出预算时返回。
var errOverBudget = errors.New("语句超出预算")

func (a *app) fitCmd() *cobra.Command {
	var (
		eachLine bool
		asJSON   bool
		strict   bool
		detail   bool
		jobs     int
	)
	cmd := &cobra.Command{
		Use:   "fit [files...]",
		Short: "批量计算语句的字符与可视行用量",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.readStatements(args, eachLine)
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			reports, err := a.fitAll(cmd, p, items, fit.Options{}, jobs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				type entry struct {
					Name   string     `json:"name"`
					Report fit.Report `json:"report"`
				}
				entries := make([]entry, len(items))
				for i := range items {
					entries[i] = entry{Name: items[i].Name, Report: reports[i]}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(entries); err != nil {
					return err
				}
			} else {
				t := newTable("语句", "字符", "行", "状态")
				for i, rep := range reports {
					t.add(items[i].Name, ratio(rep.UsedChars, rep.CharLimit), ratio(rep.UsedLines, rep.LineLimit), status(rep))
				}
				if err := t.render(out); err != nil {
					return err
				}
				if detail {
					for i, rep := range reports {
						fmt.Fprintf(out, "\n%s\n", items[i].Name)
						if err := writeRows(out, rep.Rows); err != nil {
							return err
						}
					}
				}
			}

			if strict {
				over := 0
				for _, rep := range reports {
					if rep.OverBudget {
						over++
					}
				}
				if over > 0 {
					return fmt.Errorf("%w: %d 条", errOverBudget, over)
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&eachLine, "each-line", "l", false, "每个非空行作为一条语句")
	f.BoolVar(&asJSON, "json", false, "以 JSON 输出完整报告")
	f.BoolVar(&strict, "strict", false, "有语句超出预算时返回错误")
	f.BoolVarP(&detail, "detail", "d", false, "同时输出每条语句的分行")
	f.IntVarP(&jobs, "jobs", "j", 0, "并发数，默认 CPU 数")
	return cmd
}

// lineCmd 构造 toggle/shorten/lengthen：新文本写到标准输出，用量写到标准错误。
func (a *app) lineCmd(use, short string, op func(*fit.Slot, int) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <line> [text...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("行号无效 %q: %w", args[0], err)
			}
			text, err := a.readText(args[1:])
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			slot, err := a.newSlot(p, fit.Options{})
			if err != nil {
				return err
			}
			defer slot.Close()
			if err := slot.SetText(text); err != nil {
				return err
			}
			changed, err := op(slot, line)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.ErrOrStderr(), "第 %d 行没有可调整的内容\n", line)
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), slot.Text()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), summary(slot.Report()))
			return nil
		},
	}
}
