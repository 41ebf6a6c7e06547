package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/mymovies/internal/catalog"
	"github.com/John-Robertt/mymovies/internal/config"
	"github.com/John-Robertt/mymovies/internal/infra/httpx"
	"github.com/John-Robertt/mymovies/internal/logging"
	"github.com/John-Robertt/mymovies/internal/provider"
	"github.com/John-Robertt/mymovies/internal/provider/imdb"
	"github.com/John-Robertt/mymovies/internal/provider/omdb"
	"github.com/John-Robertt/mymovies/internal/store"
	"github.com/John-Robertt/mymovies/internal/ui"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	err := newRootCmd(a).ExecuteContext(context.Background())
	// RunE 失败时 cobra 不会调用 PersistentPostRun。
	a.teardown()
	if err != nil {
		if !a.reported {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// app 持有一次进程运行所需的全部依赖。
// 除 config 子命令外，目录在 PersistentPreRunE 中打开、在 PersistentPostRun 中关闭。
type app struct {
	dir   string
	flags config.CLIArgs

	in     io.ReadCloser
	out    io.Writer
	errOut io.Writer
	// tty=true 时 stdout 输出渲染后的卡片；否则 stdout 只输出一个 JSON 文档。
	tty bool
	// reported 表示错误已经按输出契约报告过，main 不再重复打印。
	reported bool

	cfg config.EffectiveConfig
	log *zap.Logger
	cat *catalog.Catalog
	r   *ui.Renderer

	// newClient/newReader 可在测试中替换。
	newClient func(httpx.Options) (*http.Client, error)
	newReader func(io.ReadCloser, io.Writer) (lineReader, error)
}

func newApp(in io.ReadCloser, out, errOut io.Writer) *app {
	return &app{
		in:        in,
		out:       out,
		errOut:    errOut,
		tty:       isTTY(out),
		log:       zap.NewNop(),
		r:         ui.New(ui.DefaultWidth),
		newClient: httpx.NewClient,
		newReader: newReadline,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mymovies",
		Short: "Personal movie catalog",
		Long: `mymovies 管理本地电影目录：增删改、检索、范围过滤、排序分页、评分统计，
可选地通过 OMDb（回退 IMDb）补全影片信息。

不带子命令时进入交互菜单。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.interactive(cmd.Context())
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.dir, "dir", "C", ".", "数据目录（mymovies.yaml 与默认数据文件所在目录）")
	pf.StringVar(&a.flags.DataFile, "data-file", "", "数据文件路径（相对 --dir）")
	pf.StringVar(&a.flags.Store, "store", "", "存储后端：json|sqlite")
	pf.StringVar(&a.flags.APIKey, "api-key", "", "OMDb API key（或设置 "+config.EnvAPIKey+"）")
	pf.StringVar(&a.flags.Provider, "provider", "", "首选远程来源：omdb|imdb")
	pf.StringVar(&a.flags.LogFile, "log-file", "", "额外写入的日志文件")
	pf.BoolVarP(&a.flags.Verbose, "verbose", "v", false, "输出 debug 日志")

	root.AddCommand(
		newListCmd(a),
		newSearchCmd(a),
		newFilterCmd(a),
		newStatsCmd(a),
		newRandomCmd(a),
		newAddCmd(a),
		newDeleteCmd(a),
		newExportCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup 加载配置、构造 logger；需要目录的命令同时打开存储。
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadEffective(a.dir, a.flags)
	if err != nil {
		a.fail(err)
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		err = fmt.Errorf("failed to initialize logger: %w", err)
		a.fail(err)
		return err
	}
	a.log = logger
	a.log.Debug("config loaded",
		zap.String("config", cfg.ConfigPath),
		zap.String("store", cfg.Store),
		zap.String("data_file", cfg.DataFile),
	)

	if !needsCatalog(cmd) {
		return nil
	}
	st, err := store.Open(cfg.Store, cfg.DataFile, a.log)
	if err != nil {
		a.fail(err)
		return err
	}
	cat, err := catalog.Open(cmd.Context(), st, a.log)
	if err != nil {
		_ = st.Close()
		err = fmt.Errorf("load %s: %w", cfg.DataFile, err)
		a.fail(err)
		return err
	}
	a.cat = cat
	return nil
}

func (a *app) teardown() {
	if a.cat != nil {
		if err := a.cat.Close(); err != nil {
			a.log.Warn("close store failed", zap.Error(err))
		}
		a.cat = nil
	}
	_ = a.log.Sync()
}

func needsCatalog(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["catalog"] == "none" {
			return false
		}
	}
	return true
}

// lookupReady 表示远程补全是否可用（只有配置了 API key 才提供）。
func (a *app) lookupReady() bool {
	_, ok := a.cfg.APIKey()
	return ok
}

// lookup 用配置中的网络策略构造 client，并按 provider 顺序查询。
func (a *app) lookup(ctx context.Context, title string) (provider.Result, error) {
	key, ok := a.cfg.APIKey()
	if !ok {
		return provider.Result{}, omdb.ErrNoAPIKey
	}
	reg, err := provider.NewRegistry(
		omdb.Provider{APIKey: key, BaseURL: a.cfg.OMDbBaseURL},
		imdb.Provider{BaseURL: a.cfg.IMDbBaseURL},
	)
	if err != nil {
		return provider.Result{}, err
	}
	client, err := a.newClient(httpx.Options{
		ProxyURL: a.cfg.ProxyURL,
		Retry:    a.cfg.Retry,
		Timeout:  a.cfg.Timeout,
		Logger:   a.log,
	})
	if err != nil {
		return provider.Result{}, err
	}

	res, err := provider.LookupTrace(ctx, reg, a.cfg.Provider, title, client)
	for _, at := range res.Attempts {
		if at.Err != nil {
			a.log.Debug("lookup attempt failed", zap.String("provider", at.Provider), zap.String("stage", at.Stage), zap.Error(at.Err))
		}
	}
	if err == nil {
		a.log.Info("lookup ok", zap.String("provider", res.Provider), zap.String("url", res.PageURL))
	}
	return res, err
}

// errorDoc 是非 TTY 模式下失败时 stdout 上的 JSON 文档。
type errorDoc struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code,omitempty"`
}

// emit 输出一次命令结果：TTY 上打印 pretty，否则 stdout 只输出一个 JSON 文档。
func (a *app) emit(doc any, pretty string) error {
	if a.tty {
		_, err := fmt.Fprintln(a.out, pretty)
		return err
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// fail 报告命令失败。TTY 上错误走 stderr；否则 stdout 仍然给出一个 JSON 文档。
func (a *app) fail(err error) {
	a.reported = true
	if a.tty {
		fmt.Fprintln(a.errOut, a.r.Error(err.Error()))
		return
	}
	_ = a.emit(errorDoc{Error: err.Error(), ErrorCode: errorCode(err)}, "")
}

// note 输出面向人的附加信息（例如保存失败的告警），永远走 stderr。
func (a *app) note(msg string) {
	fmt.Fprintln(a.errOut, a.r.Warning(msg))
}

func errorCode(err error) string {
	var nerr *provider.NetworkError
	switch {
	case config.Code(err) != "":
		return config.Code(err)
	case errors.Is(err, provider.ErrNotFound):
		return "not_found"
	case errors.As(err, &nerr):
		return "network_error"
	case catalog.IsSaveError(err):
		return "save_failed"
	default:
		return ""
	}
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
