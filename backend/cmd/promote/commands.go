package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/service"
)

func newAnalyzeCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "List the students who would move, without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd.Context())
			if err != nil {
				return err
			}
			moves, err := a.logic.Analyze(cmd.Context(), a.target)
			if err != nil {
				return withCode(exitAccess, err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), moves)
			}
			printMoves(cmd.OutOrStdout(), moves)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the moves as JSON")
	return cmd
}

func newExecuteCmd(opts *globalOptions) *cobra.Command {
	var (
		yes     bool
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Analyze, confirm, and move students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.setup(ctx)
			if err != nil {
				return err
			}
			moves, err := a.logic.Analyze(ctx, a.target)
			if err != nil {
				return withCode(exitAccess, err)
			}
			out := cmd.OutOrStdout()
			printMoves(out, moves)
			if len(moves) == 0 {
				return nil
			}
			if !yes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Move %d students?", len(moves))) {
				return withCode(exitAborted, errors.New("aborted"))
			}

			rec, err := a.logic.Execute(ctx, a.target, moves)
			return finishRecord(out, outPath, rec, err)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the execution record (needed for revert) to this file")
	return cmd
}

func newRevertCmd(opts *globalOptions) *cobra.Command {
	var (
		recordPath string
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "revert",
		Short: "Undo the moves listed in an execution record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rec, err := readRecord(recordPath)
			if err != nil {
				return withCode(exitUsage, err)
			}
			if opts.xlsxPath == "" && opts.spreadsheetID == "" {
				if strings.HasSuffix(strings.ToLower(rec.SpreadsheetID), ".xlsx") {
					opts.xlsxPath = rec.SpreadsheetID
				} else {
					opts.spreadsheetID = rec.SpreadsheetID
				}
			}
			a, err := opts.setup(ctx)
			if err != nil {
				return err
			}
			rec.SpreadsheetID = a.target

			undo, err := a.logic.Revert(ctx, rec)
			if errors.Is(err, service.ErrEmptyRecord) {
				return withCode(exitUsage, err)
			}
			return finishRecord(cmd.OutOrStdout(), outPath, undo, err)
		},
	}
	cmd.Flags().StringVar(&recordPath, "record", "", "Execution record written by execute --out (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the revert record to this file")
	_ = cmd.MarkFlagRequired("record")
	return cmd
}

func newRenumberCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "renumber",
		Short: "Rewrite the sequence column of every band worksheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.setup(cmd.Context())
			if err != nil {
				return err
			}
			n, err := a.logic.Renumber(cmd.Context(), a.target)
			if err != nil {
				return withCode(exitAccess, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renumbered %d cells\n", n)
			return nil
		},
	}
}

// finishRecord reports rec, saves it when asked, and turns a partial run into
// a non-zero exit.
func finishRecord(out io.Writer, outPath string, rec *models.ExecutionRecord, err error) error {
	if rec == nil {
		return withCode(exitAccess, err)
	}
	printRecord(out, rec)
	if outPath != "" {
		if werr := writeJSONFile(outPath, rec); werr != nil {
			return withCode(1, fmt.Errorf("write record: %w", werr))
		}
		fmt.Fprintf(out, "record saved to %s\n", outPath)
	}
	if err != nil {
		return withCode(exitPartial, err)
	}
	if rec.Partial() {
		return withCode(exitPartial, fmt.Errorf("completed with %d failures", len(rec.Failures)))
	}
	return nil
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
