package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readRecord(path string) (*models.ExecutionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var rec models.ExecutionRecord
	if err := json.NewDecoder(f).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &rec, nil
}

// printMoves writes a table of moves for a human to confirm.
func printMoves(w io.Writer, moves []models.ProposedMove) {
	if len(moves) == 0 {
		fmt.Fprintln(w, "No students need to move.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STUDENT\tAGE\tFROM\tROW\tTO")
	for _, m := range moves {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n", m.StudentName, m.Age, m.SourceWorksheet, m.SourceRowIndex+1, m.DestinationWorksheet)
	}
	tw.Flush()
}

func printRecord(w io.Writer, rec *models.ExecutionRecord) {
	fmt.Fprintf(w, "%s %s: moved %d, failed %d, renumbered %d\n", rec.Kind, rec.ID, rec.MovedCount, len(rec.FailedNames), rec.Renumbered)
	for _, f := range rec.Failures {
		name := f.StudentName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "  %s (%s): %s\n", name, f.Stage, f.Error)
	}
}
