package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/thatsimonsguy/qivivo-client/db"
	"github.com/thatsimonsguy/qivivo-client/internal/logging"
)

var errUsage = errors.New("usage")

func main() {
	if err := DebugCLI(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(0)
		}
		fmt.Println(err)
		os.Exit(1)
	}
}

func DebugCLI(args []string, out io.Writer) error {
	var dbPath, command, serial string
	var limit int
	var olderThan time.Duration
	fs := flag.NewFlagSet("qivivo-debug", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&dbPath, "db", "data/journal.db", "Path to the SQLite reading journal")
	fs.StringVar(&command, "cmd", "", "Command to run: recent, prune")
	fs.StringVar(&serial, "serial", "", "Device serial for recent")
	fs.IntVar(&limit, "limit", 20, "Number of readings to show")
	fs.DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age beyond which prune deletes readings")
	help := fs.Bool("help", false, "Show help")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *help || command == "" {
		fmt.Fprintln(out, "\nUsage of qivivo-debug:")
		fmt.Fprintln(out, "  -db string\tPath to the SQLite reading journal (default 'data/journal.db')")
		fmt.Fprintln(out, "  -cmd string\tCommand to run: recent, prune")
		fmt.Fprintln(out, "  -serial string\tDevice serial for recent")
		fmt.Fprintln(out, "  -limit int\tNumber of readings to show (default 20)")
		fmt.Fprintln(out, "  -older-than duration\tAge beyond which prune deletes readings (default 720h)")
		fmt.Fprintln(out, "  -help\tShow this help message")
		return errUsage
	}

	// keep journal housekeeping logs out of the command output
	logging.Init(zerolog.WarnLevel, "")

	ctx := context.Background()
	switch command {
	case "recent":
		if serial == "" {
			return errors.New("Error: serial is required")
		}
		readings, err := db.RecentReadingsCLI(ctx, dbPath, serial, limit)
		if err != nil {
			return fmt.Errorf("Command %s failed: %w", command, err)
		}
		for _, r := range readings {
			fmt.Fprintf(out, "%s  %-18s %v  (valid until %s)\n",
				r.FetchedAt.Local().Format(time.DateTime), r.Field, r.Value, r.ValidUntil.Local().Format(time.DateTime))
		}
	case "prune":
		n, err := db.PruneReadingsCLI(ctx, dbPath, olderThan)
		if err != nil {
			return fmt.Errorf("Command %s failed: %w", command, err)
		}
		fmt.Fprintf(out, "Pruned %d readings\n", n)
	default:
		return errors.New("Invalid command")
	}
	return nil
}
