// Command knnbench generates point sets and benchmarks the k-nearest-neighbour
// engines against each other.
//
// Settings are read from KNN_* environment variables (optionally from a .env
// file, or the file named by KNN_ENV_FILE) and can be overridden by flags:
//
//	knnbench run --ref-nb 4096 --query-nb 4096 --dim 68 --k 20
//	knnbench gen --width 100000 --dim 128 --compression zstd ref.knn
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	cfg, err := LoadConfig(os.Getenv("KNN_ENV_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "knnbench:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(&cfg).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
