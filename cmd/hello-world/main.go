package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/src-d/go-billy.v4/osfs"

	"github.com/wippyai/hello-element/abi"
	"github.com/wippyai/hello-element/guest"
)

// Exports a guest needs to be rendered by the element.
var requiredExports = []string{abi.ExportRender}

func main() {
	var (
		configFile  = flag.String("config", "", "Path to a TOML config file")
		root        = flag.String("root", "", "Directory resources are resolved against")
		module      = flag.String("module", "", "Guest module path, relative to root")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		memPages    = flag.Uint("memory-pages", 0, "Guest memory limit in 64KiB pages")
		list        = flag.Bool("list", false, "List guest imports and exports and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		serve       = flag.String("serve", "", "Serve the page on this address (e.g. :8080)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			cfg.Root = *root
		case "module":
			cfg.Module = *module
		case "log-level":
			cfg.LogLevel = *logLevel
		case "memory-pages":
			cfg.MemoryPages, flagErr = memoryPages(*memPages)
		case "serve":
			cfg.Serve.Addr = *serve
		}
	})
	if flagErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", flagErr)
		os.Exit(2)
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	log, err := newLogger(cfg.LogLevel, *interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, osfs.New(cfg.Root))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close(context.Background())

	switch {
	case *list:
		err = a.list(ctx, os.Stdout)
	case *interactive:
		err = runInteractive(ctx, a)
	case *serve != "":
		err = a.serve(ctx)
	default:
		err = a.render(ctx, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds a console logger on stderr. The TUI owns the terminal,
// so interactive mode logs nothing below error.
func newLogger(level string, interactive bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	if interactive && lvl.Level() < zapcore.ErrorLevel {
		lvl.SetLevel(zapcore.ErrorLevel)
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = lvl
	zcfg.DisableStacktrace = true
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zcfg.Build()
}

// render prints the index page with every hello-world element rendered.
func (a *app) render(ctx context.Context, w io.Writer) error {
	if err := a.renderPage(ctx, w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// list prints the guest's imports and exports.
func (a *app) list(ctx context.Context, w io.Writer) error {
	imports, exports, err := a.eng.Inspect(ctx, a.fs, a.cfg.Module)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Module: %s\n", a.cfg.Module)
	fmt.Fprintf(w, "\nImported functions:\n")
	for _, f := range imports {
		fmt.Fprintf(w, "  %s\n", f)
	}
	fmt.Fprintf(w, "\nExported functions:\n")
	var missing []string
	for _, f := range exports {
		fmt.Fprintf(w, "  %s\n", f)
	}
	for _, name := range requiredExports {
		if !hasExport(exports, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(w, "\nMissing required exports: %s\n", strings.Join(missing, ", "))
	}
	return nil
}

func hasExport(exports []guest.FuncInfo, name string) bool {
	for _, f := range exports {
		if f.Name == name {
			return true
		}
	}
	return false
}
