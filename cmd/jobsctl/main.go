// Command jobsctl triggers and inspects background jobs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sahel-erp/sahel-erp/jobs"
)

const usage = `usage: jobsctl [-redis addr] <command>

commands:
  trigger <job>     enqueue a job (%s, %s)
  stats             show default queue counters
  scheduled [-n N]  list scheduled tasks
`

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "jobsctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("jobsctl", flag.ContinueOnError)
	defaultAddr := os.Getenv("REDIS_ADDR")
	if defaultAddr == "" {
		defaultAddr = "127.0.0.1:6379"
	}
	redisAddr := fs.String("redis", defaultAddr, "redis address")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), usage, jobs.TaskAttendanceDailySummary, jobs.TaskIdempotencyCleanup)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	cli := newJobsCLI(*redisAddr)
	defer cli.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	switch rest[0] {
	case "trigger":
		if len(rest) < 2 {
			return fmt.Errorf("trigger: job name required")
		}
		info, err := cli.Trigger(ctx, rest[1])
		if err != nil {
			return err
		}
		return enc.Encode(map[string]string{"id": info.ID, "type": info.Type, "queue": info.Queue})
	case "stats":
		stats, err := cli.InspectQueue()
		if err != nil {
			return err
		}
		return enc.Encode(stats)
	case "scheduled":
		sub := flag.NewFlagSet("scheduled", flag.ContinueOnError)
		size := sub.Int("n", 10, "page size")
		if err := sub.Parse(rest[1:]); err != nil {
			return err
		}
		tasks, err := cli.ListScheduled(*size)
		if err != nil {
			return err
		}
		type row struct {
			ID     string `json:"id"`
			Type   string `json:"type"`
			NextAt string `json:"next_process_at"`
		}
		rows := make([]row, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, row{ID: t.ID, Type: t.Type, NextAt: t.NextProcessAt.Format("2006-01-02T15:04:05Z07:00")})
		}
		return enc.Encode(rows)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", rest[0])
	}
}
