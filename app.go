package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/epbkit/linefit/config"
	"github.com/epbkit/linefit/draftstore"
	"github.com/epbkit/linefit/fit"
	"github.com/epbkit/linefit/form"
	"github.com/epbkit/linefit/revise"
	"github.com/epbkit/linefit/revise/gemini"
	"github.com/epbkit/linefit/revise/mock"
	"github.com/epbkit/linefit/revise/openai"
)

// app 保存全局参数以及 PersistentPreRunE 中加载的配置和日志。
type app struct {
	cfgPath  string
	formName string
	slotName string
	verbose  bool
	stdin    io.Reader

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	a := &app{stdin: stdin, cfg: config.Defaults(), logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "linefit",
		Short: "AF Form 1206 / EPB 语句适配工具",
		Long: `linefit 按表单的字宽与行宽测量语句，给出字符与可视行用量，
并支持按行切换窄空格、缩写替换以及调用大模型改写选区。

示例：
  linefit fit statements.txt --each-line
  linefit toggle 1 "Led 12 Airmen through UCI prep, ..."
  linefit revise --mode compress --start 0 --end 40 < statement.txt
  linefit preview -o out/award.pdf statements.txt --each-line`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}
	f := root.PersistentFlags()
	f.StringVarP(&a.cfgPath, "config", "c", "", "配置文件（.yaml/.yml/.toml）")
	f.StringVar(&a.formName, "form", "", "表单名称，覆盖配置中的 form")
	f.StringVar(&a.slotName, "slot", "", "槽位名称，覆盖配置中的 slot")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "输出调试日志")

	root.AddCommand(
		a.formsCmd(),
		a.measureCmd(),
		a.segmentCmd(),
		a.fitCmd(),
		a.lineCmd("toggle", "切换某一行的窄空格压缩", (*fit.Slot).ToggleLine),
		a.lineCmd("shorten", "将某一行替换为缩写形式", (*fit.Slot).ShortenLine),
		a.lineCmd("lengthen", "展开某一行中的缩写", (*fit.Slot).LengthenLine),
		a.reviseCmd(),
		a.previewCmd(),
		a.watchCmd(),
		a.draftCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.formName != "" {
		cfg.Form = a.formName
	}
	if a.slotName != "" {
		cfg.Slot = a.slotName
	}
	a.cfg = cfg
	logger, err := newLogger(cfg.Log, a.verbose)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	a.logger = logger
	return nil
}

func newLogger(lc config.LogConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = lc.Format
	lvl, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// profile 返回当前表单；form_file 中的定义优先于内置表单。
func (a *app) profile() (*form.Profile, error) {
	profiles := form.Builtins()
	if a.cfg.FormFile != "" {
		extra, err := form.LoadFile(a.cfg.FormFile)
		if err != nil {
			return nil, err
		}
		profiles = append(extra, profiles...)
	}
	return form.Lookup(a.cfg.Form, profiles...)
}

func (a *app) newSlot(p *form.Profile, opts fit.Options) (*fit.Slot, error) {
	if opts.Logger == nil {
		opts.Logger = a.logger
	}
	if opts.Model == "" {
		opts.Model = a.cfg.Model
	}
	return p.NewSlot(a.cfg.Slot, opts)
}

// budget 返回当前槽位的预算。
func (a *app) budget(p *form.Profile) (fit.Budget, error) {
	def, ok := p.Slot(a.cfg.Slot)
	if !ok {
		return fit.Budget{}, fmt.Errorf("form %s: 未定义的槽位 %q", p.Name, a.cfg.Slot)
	}
	return def.Budget, nil
}

func (a *app) newReviser(ctx context.Context) (revise.Reviser, error) {
	switch a.cfg.Provider {
	case config.ProviderOpenAI:
		o := a.cfg.OpenAI
		if o.Model == "" {
			o.Model = a.cfg.Model
		}
		c, err := openai.New(o)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderGemini:
		o := a.cfg.Gemini
		if o.Model == "" {
			o.Model = a.cfg.Model
		}
		c, err := gemini.New(ctx, o)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return mock.New(mock.Options{}), nil
	}
}

// openStore 打开配置的草稿库，返回值 close 总是非空。
func (a *app) openStore() (draftstore.Store, func() error, error) {
	if a.cfg.Store.Driver == "memory" {
		return draftstore.NewMemory(), func() error { return nil }, nil
	}
	s, err := draftstore.OpenSQLite(a.cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("打开草稿库失败: %w", err)
	}
	return s, s.Close, nil
}

// readText 取参数拼接的文本；无参数或参数为 "-" 时读取标准输入（去掉末尾换行）。
func (a *app) readText(args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", fmt.Errorf("读取标准输入失败: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
