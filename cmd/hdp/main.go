// Command hdp drives the Heterogeneous Data Processor batch pipeline:
// compile a task batch, fetch its witnesses, and invoke the sound VM to
// produce a proof bundle. See the run, run-datalake, run-module and start
// subcommands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/HerodotusDev/hdp-sub002/log"
)

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	sub, rest := args[0], args[1:]
	ctx := context.Background()

	var err error
	switch sub {
	case "run":
		err = runBatch(ctx, rest)
	case "run-datalake":
		err = runDatalake(ctx, rest)
	case "run-module":
		err = runModule(ctx, rest)
	case "start":
		err = startServer(ctx, rest)
	case "version":
		fmt.Printf("hdp %s (commit %s)\n", version, commit)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "hdp: unknown subcommand %q\n", sub)
		usage()
		return 2
	}
	if err != nil {
		log.Default().Error("command failed", "subcommand", sub, "err", err)
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: hdp <subcommand> [flags]

subcommands:
  run            run a batch of tasks described by --request-file
  run-datalake   run a single datalake_compute task from flags
  run-module     run a single module task from flags
  start          run a long-lived HTTP server accepting batches over POST /run
  version        print version and exit`)
}
