package main

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/epbkit/linefit/density"
	"github.com/epbkit/linefit/fit"
	"github.com/epbkit/linefit/layout"
	"github.com/epbkit/linefit/revise"
)

func (a *app) reviseCmd() *cobra.Command {
	var (
		start       int
		end         int
		modeName    string
		instruction string
		apply       int
	)
	cmd := &cobra.Command{
		Use:   "revise [text...]",
		Short: "调用大模型改写选区并列出候选",
		Long: `revise 将 [start,end) 范围（按字符计）交给配置的模型改写，
列出每个候选替换后的字符与行数；--apply N 输出应用第 N 个候选后的全文。
end 为负数时表示到文本末尾。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := revise.ParseMode(modeName)
			if err != nil {
				return err
			}
			text, err := a.readText(args)
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			budget, err := a.budget(p)
			if err != nil {
				return err
			}
			m, err := p.Measurer()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout())
			defer cancel()
			rv, err := a.newReviser(ctx)
			if err != nil {
				return fmt.Errorf("初始化模型失败: %w", err)
			}
			slot, err := a.newSlot(p, fit.Options{Measurer: m, Reviser: rv})
			if err != nil {
				return err
			}
			defer slot.Close()
			if err := slot.SetText(text); err != nil {
				return err
			}
			if end < 0 {
				end = utf8.RuneCountInString(text)
			}
			rev, err := slot.RequestRevision(ctx, revise.Range{Start: start, End: end}, mode, instruction)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if apply > 0 {
				if apply > len(rev.Candidates) {
					return fmt.Errorf("候选编号 %d 超出范围（共 %d 个）", apply, len(rev.Candidates))
				}
				if err := slot.ApplyCandidate(rev, rev.Candidates[apply-1]); err != nil {
					return err
				}
				if _, err := fmt.Fprintln(out, slot.Text()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), summary(slot.Report()))
				return nil
			}

			t := newTable("#", "字符", "行", "适配", "候选")
			for i, cand := range rev.Candidates {
				full, err := density.Splice(text, rev.Request.Range.Start, rev.Request.Range.End, cand)
				if err != nil {
					return err
				}
				chars := fit.UsedChars(full)
				ok := layout.Fits(full, budget.LineWidth, budget.Lines, m) &&
					(budget.CharLimit <= 0 || chars <= budget.CharLimit)
				t.add(strconv.Itoa(i+1), ratio(chars, budget.CharLimit),
					ratio(layout.LineCount(full, budget.LineWidth, m), budget.Lines), yesNo(ok), visible(cand))
			}
			return t.render(out)
		},
	}
	f := cmd.Flags()
	f.IntVar(&start, "start", 0, "选区起点（字符下标）")
	f.IntVar(&end, "end", -1, "选区终点（不含），负数表示文本末尾")
	f.StringVarP(&modeName, "mode", "m", "general", "改写方式：expand、compress、general")
	f.StringVarP(&instruction, "instruction", "i", "", "附加给模型的说明")
	f.IntVar(&apply, "apply", 0, "应用第 N 个候选并输出全文")
	return cmd
}

func yesNo(ok bool) string {
	if ok {
		return "是"
	}
	return "否"
}
