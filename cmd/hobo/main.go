// Command hobo converts one HOBOware CSV export into csv, json, xlsx or
// Arrow, optionally applying QC. The input is a local path or an
// s3://bucket/key URI.
//
//	hobo [-qc] [-strict] [-format csv|json|xlsx|arrow] [-o out] <path|s3://bucket/key>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/hobo/internal/config"
	"github.com/JonMunkholm/hobo/internal/core"
	"github.com/JonMunkholm/hobo/internal/export"
	"github.com/JonMunkholm/hobo/internal/logging"
	"github.com/JonMunkholm/hobo/internal/source"
)

func main() {
	// A missing .env is normal for the CLI.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, getenv config.LookupFunc, stdout, stderr io.Writer) int {
	cfg, err := config.LoadFrom(getenv)
	if err != nil {
		fmt.Fprintf(stderr, "hobo: %v\n", err)
		return 2
	}
	slog.SetDefault(logging.New(stderr, cfg.Logging.Level, cfg.Logging.Format))

	fs := flag.NewFlagSet("hobo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	applyQC := fs.Bool("qc", cfg.QC.EnabledByDefault, "apply the QC test chain")
	strict := fs.Bool("strict", cfg.Parse.StrictFields, "reject header fields without a unit")
	formatName := fs.String("format", string(export.CSV), "output format: "+formatList())
	out := fs.String("o", "", "output file (default stdout)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: hobo [-qc] [-strict] [-format csv|json|xlsx|arrow] [-o out] <path|s3://bucket/key>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	format, err := export.ParseFormat(*formatName)
	if err != nil {
		fmt.Fprintf(stderr, "hobo: %s\n", core.FormatUserError(err))
		return 2
	}

	if err := convert(ctx, cfg, fs.Arg(0), *out, format, core.ParseOptions{QC: *applyQC, Strict: *strict}, stdout); err != nil {
		slog.Debug("conversion failed", "error", err)
		fmt.Fprintf(stderr, "hobo: %v\n", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(stderr, core.FormatUserError(err))
		}
		return 1
	}
	return 0
}

func convert(ctx context.Context, cfg *config.Config, uri, outPath string, format export.Format, opts core.ParseOptions, stdout io.Writer) (err error) {
	svc, err := core.NewService(nil, cfg)
	if err != nil {
		return err
	}

	obj, err := source.NewOpener(cfg.Storage).Open(ctx, uri)
	if err != nil {
		return err
	}
	defer obj.Body.Close()

	res, err := svc.Parse(ctx, obj.Name, obj.Body, obj.Size, opts)
	if err != nil {
		return err
	}
	if res.QC != nil {
		slog.Info("qc applied", "bad_values", res.QC.Bad())
	}

	w := stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}
	if err := export.Write(w, res.Table, format); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}

func formatList() string {
	names := make([]string, len(export.Formats))
	for i, f := range export.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
