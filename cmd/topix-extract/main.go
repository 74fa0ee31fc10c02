package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/cognicore/topix/internal/cli"
)

func main() {
	flags := cli.Register(flag.CommandLine)
	flag.Parse()

	cfg, err := flags.Config()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Require("documents.dir", "model.path"); err != nil {
		log.Fatalf("%v (use --dir and --model)", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, err := cli.Setup(ctx, cfg)
	if err != nil {
		log.Fatalf("setup: %v", err)
	}
	defer env.Close()

	m, err := env.Topix.LoadModel(ctx)
	if err != nil {
		log.Fatalf("load model: %v", err)
	}

	docs, err := env.Topix.LoadDocuments(ctx, false)
	if err != nil {
		log.Fatalf("load documents: %v", err)
	}

	results, err := env.Topix.Extract(ctx, m, docs)
	if err != nil {
		log.Fatalf("extract: %v", err)
	}
	log.Printf("Extracted topics for %d documents in %s", len(results), cfg.Documents.Dir)

	// Evaluate only when some documents carry .key files
	if metrics, n := env.Topix.Evaluate(results); n > 0 {
		fmt.Printf("Evaluated %d documents\n", n)
		fmt.Printf("  Precision: %.4f\n", metrics.Precision)
		fmt.Printf("  Recall:    %.4f\n", metrics.Recall)
		fmt.Printf("  F1:        %.4f\n", metrics.F1)
	}
}
