package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gradesheet/internal/canvas"
	appI18n "gradesheet/internal/i18n"
	"gradesheet/internal/server"
	"gradesheet/internal/workbook"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gradesheet [file ...]",
		Short: "Convert quiz CSV exports into grading workbooks",
	}

	convert := convertCmd()
	root.AddCommand(convert, serveCmd())

	// Make "convert" the default when no subcommand is given.
	root.RunE = convert.RunE
	root.Args = cobra.ArbitraryArgs

	// Register convert flags on root so bare `gradesheet quiz.csv -o out.xlsx`
	// still works.
	root.Flags().AddFlagSet(convert.Flags())

	return root
}

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [file ...]",
		Short: "Convert one or more quiz exports",
		Args:  cobra.ArbitraryArgs,
		RunE:  runConvert,
	}
	f := cmd.Flags()
	f.StringP("output", "o", "", "Output file path (only valid with a single input file)")
	f.StringP("lang", "l", "en", "Workbook language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the upload page for converting exports in the browser",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "en", "UI and workbook language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("GRADESHEET")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("gradesheet")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/gradesheet")
	v.AddConfigPath("/etc/gradesheet")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runConvert(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	if len(args) == 0 {
		return fmt.Errorf("at least one input file is required")
	}
	output := v.GetString("output")
	if len(args) > 1 && output != "" {
		return fmt.Errorf("cannot specify an output file when converting multiple files")
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))

	// Inputs convert in the given order; the first failure stops the run and
	// leaves any outputs already written.
	for _, path := range args {
		dest := output
		if dest == "" {
			dest = defaultOutputPath(path)
		}
		if err := convertFile(ctx, path, dest); err != nil {
			return err
		}
		slog.Info("converted", "input", path, "output", dest)
	}
	return nil
}

func convertFile(ctx context.Context, input, output string) error {
	export, err := canvas.Parse(input)
	if err != nil {
		return err
	}
	if err := workbook.Write(ctx, export, output); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	return nil
}

// defaultOutputPath swaps the input's extension for .xlsx and drops its
// directory: default outputs land in the working directory.
func defaultOutputPath(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	server.New().Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server", "addr", addr, "lang", lang)
	return http.ListenAndServe(addr, r)
}
