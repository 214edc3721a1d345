package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/config"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/logging"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/service"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/sheets"
)

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	spreadsheetID string
	xlsxPath      string
	bandsFile     string
	today         string
	envFiles      []string
}

// app is what a subcommand runs against once flags and config are resolved.
type app struct {
	logic  *service.Logic
	target string
	cfg    *config.Config
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	cmd := &cobra.Command{
		Use:           "promote",
		Short:         "Move students into the worksheet of their age band",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.spreadsheetID, "spreadsheet", "", "Google spreadsheet ID (default $SPREADSHEET_ID)")
	flags.StringVar(&opts.xlsxPath, "xlsx", "", "Work on a local .xlsx file instead of Google Sheets")
	flags.StringVar(&opts.bandsFile, "bands", "", "Band progression YAML (default $BANDS_FILE, else built-in bands)")
	flags.StringVar(&opts.today, "today", "", "Compute ages as of this date (YYYY-MM-DD)")
	flags.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "Env files to load when present")

	cmd.AddCommand(newAnalyzeCmd(&opts))
	cmd.AddCommand(newExecuteCmd(&opts))
	cmd.AddCommand(newRevertCmd(&opts))
	cmd.AddCommand(newRenumberCmd(&opts))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}

// setup loads configuration and builds the Logic for the chosen backend.
// Logs go to stderr so stdout stays machine-readable.
func (o *globalOptions) setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	bandsFile := o.bandsFile
	if bandsFile == "" {
		bandsFile = cfg.BandsFile
	}
	progression, err := config.LoadProgression(bandsFile)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}

	clock := cfg.Clock()
	if strings.TrimSpace(o.today) != "" {
		d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(o.today), cfg.Location())
		if err != nil {
			return nil, withCode(exitUsage, fmt.Errorf("invalid --today: %w", err))
		}
		clock = func() time.Time { return d }
	}

	var (
		opener service.Opener
		target string
	)
	switch {
	case o.xlsxPath != "":
		opener, target = sheets.XLSXOpener{}, o.xlsxPath
	default:
		target = o.spreadsheetID
		if target == "" {
			target = cfg.SpreadsheetID
		}
		if target == "" {
			return nil, withCode(exitUsage, fmt.Errorf("one of --spreadsheet, --xlsx or SPREADSHEET_ID is required"))
		}
		client, err := sheets.NewClient(ctx, cfg.CredentialsPath)
		if err != nil {
			return nil, withCode(exitAccess, err)
		}
		opener = client
	}

	return &app{
		logic:  service.NewLogic(opener, progression, service.WithClock(clock)),
		target: target,
		cfg:    cfg,
	}, nil
}
