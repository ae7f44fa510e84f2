// Command board builds a dashboard board from a roster exported as CSV and
// prints it as JSON. It runs the same parsing and aggregation as the
// service, without any external calls.
//
// Usage:
//
//	go run ./cmd/board \
//	  -csv data/roster.csv \
//	  -discipline "Segurança" -site "SE Juazeiro" \
//	  -out board.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/painel-obra/internal/domain"
	"github.com/google/uuid"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	if v = strings.TrimSpace(v); v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	csvPath := fs.String("csv", "", "roster CSV with a header row")
	out := fs.String("out", "", "output path (default stdout)")
	var disciplines, sites, contractors, priority listFlag
	fs.Var(&disciplines, "discipline", "keep only this discipline (repeatable)")
	fs.Var(&sites, "site", "keep only this site (repeatable)")
	fs.Var(&contractors, "contractor", "keep only this contractor (repeatable)")
	fs.Var(&priority, "priority", "discipline display order (repeatable, default built-in order)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *csvPath == "" {
		fs.Usage()
		return fmt.Errorf("missing required flag: -csv")
	}

	rows, err := readRoster(*csvPath)
	if err != nil {
		return err
	}

	if len(priority) == 0 {
		priority = domain.DefaultDisciplinePriority
	}
	now := time.Now()
	snap := domain.RosterSnapshot{ID: uuid.NewString(), Records: domain.ParseRoster(rows), FetchedAt: now}
	f := domain.Filters{Disciplines: disciplines, Sites: sites, Contractors: contractors}
	board := domain.BuildBoard(snap, f, priority, now)

	data, err := json.MarshalIndent(board, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	data = append(data, '\n')

	if *out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Printf("%d records, %d sites written to %s", len(snap.Records), len(board.Sites), *out)
	return nil
}

// readRoster reads a CSV whose first row is the header into raw records.
// Rows may be shorter than the header.
func readRoster(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	lines, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(lines) == 0 {
		return []domain.RawRecord{}, nil
	}

	header := lines[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	rows := make([]domain.RawRecord, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rec := make(domain.RawRecord, len(header))
		for i, name := range header {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, dup := rec[name]; dup {
				continue
			}
			rec[name] = ""
			if i < len(line) {
				rec[name] = line[i]
			}
		}
		rows = append(rows, rec)
	}
	return rows, nil
}
