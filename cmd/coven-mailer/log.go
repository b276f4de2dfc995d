// ABOUTME: coven-mailer log subcommand
// ABOUTME: Prints the most recent audit records from the SQLite store

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/2389/coven-mailer/internal/config"
	"github.com/2389/coven-mailer/internal/store"
)

func runLog(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("coven-mailer log", flag.ContinueOnError)
	fs.SetOutput(out)

	var limit int
	var dbPath string
	fs.IntVar(&limit, "n", 20, "Number of records to show, newest first")
	fs.StringVar(&dbPath, "db", "", "Path to the audit database (default: from config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if dbPath == "" {
		configPath := config.DefaultPath()
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config from %s: %w", configPath, err)
		}
		dbPath = cfg.Database.Path
	}

	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}
	defer db.Close()

	return printRecords(context.Background(), db, limit, out)
}

func printRecords(ctx context.Context, s store.Store, limit int, out io.Writer) error {
	records, err := s.ListRecords(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No messages sent yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME (UTC)\tFROM\tTO\tMESSAGE")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Timestamp.UTC().Format(store.TimestampLayout),
			r.SenderEmail,
			r.ReceiverEmail,
			preview(r.MessageText, 40),
		)
	}
	return w.Flush()
}

// preview flattens newlines and truncates s to maxLen runes for table output.
func preview(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
