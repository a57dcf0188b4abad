// Command deepsquare-uci runs the search engine behind a UCI front-end
// on stdin/stdout.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/brackenfield/deepsquare/internal/engine"
	"github.com/brackenfield/deepsquare/internal/uci"
)

func main() {
	hashMB := flag.Int("hash", 64, "transposition table size in MB")
	threads := flag.Int("threads", runtime.GOMAXPROCS(0), "number of search worker threads")
	evalFile := flag.String("evalfile", "", "NNUE network weights file (empty uses the hand-crafted evaluator)")
	flag.Parse()

	eng := engine.NewEngine()
	eng.SetHashSizeMB(*hashMB)
	eng.SetThreads(*threads)
	if *evalFile != "" {
		if err := eng.LoadNNUE(*evalFile); err != nil {
			fmt.Fprintf(os.Stderr, "info string failed to load NNUE weights: %v\n", err)
		} else {
			eng.SetUseNNUE(true)
		}
	}

	handler := uci.New(eng)
	handler.Run(os.Stdin, os.Stdout)
}
