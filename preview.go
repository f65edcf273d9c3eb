package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/epbkit/linefit/fit"
	"github.com/epbkit/linefit/layout"
	"github.com/epbkit/linefit/renderer"
	canvasrenderer "github.com/epbkit/linefit/renderer/canvas"
)

func (a *app) previewCmd() *cobra.Command {
	var (
		output      string
		debugPath   string
		eachLine    bool
		fontMetrics bool
	)
	cmd := &cobra.Command{
		Use:   "preview [files...]",
		Short: "将语句按表单排版输出为 PDF 预览",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.readStatements(args, eachLine)
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			fontPath := a.cfg.Preview.FontFile
			if fontPath == "" {
				fontPath = p.FontFile
			}
			r := canvasrenderer.NewRenderer(canvasrenderer.Options{
				FontPath: fontPath,
				Families: a.cfg.Preview.Families,
			})

			var opts fit.Options
			jobs := 0
			if fontMetrics {
				m, err := r.NewMeasurer(p.Size)
				if err != nil {
					return err
				}
				opts.Measurer = m
				jobs = 1 // 字体测量器不保证并发安全
			}
			reports, err := a.fitAll(cmd, p, items, opts, jobs)
			if err != nil {
				return err
			}
			if debugPath != "" {
				if err := layout.WriteDebugJSON(reports, debugPath); err != nil {
					return err
				}
			}

			doc := &renderer.Document{
				Title:     p.Title,
				Subject:   p.Name,
				Author:    "linefit",
				FontSize:  p.Size,
				LineWidth: p.LineWidth,
			}
			for i, rep := range reports {
				doc.Statements = append(doc.Statements, renderer.Statement{Label: items[i].Name, Report: rep})
			}
			if err := writePDF(r, doc, output); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "已生成 PDF：%s\n", output)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "out", "o", "output/preview.pdf", "PDF 输出路径")
	f.StringVar(&debugPath, "debug", "", "将报告输出为 JSON")
	f.BoolVarP(&eachLine, "each-line", "l", false, "每个非空行作为一条语句")
	f.BoolVar(&fontMetrics, "font-metrics", false, "使用字体文件的真实字宽测量，而非内置字宽表")
	return cmd
}

func writePDF(r renderer.Renderer, doc *renderer.Document, outputPath string) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	pdfBytes, err := r.Render(doc)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.WriteFile(outputPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}
