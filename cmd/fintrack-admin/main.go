// Command fintrack-admin runs maintenance and reporting tasks against the
// fintrack database without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"fintrack/internal/cli"
	applog "fintrack/internal/log"
)

const usage = `usage: fintrack-admin <command> [flags]

commands:
  register   create a user account
  seed       fill a month with generated demo transactions
  dashboard  print the monthly summary and advice
  stats      print the transactions and totals of a date range
  chart      write the monthly cumulative chart as PNG
  statement  write the statement of a date range as PDF
  migrate    apply schema migrations and print the version
`

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentAdmin, os.Getenv("LOG_LEVEL"))

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, logger *applog.Logger) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errMissingCommand
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd(ctx, args[1:], out, logger)
}
