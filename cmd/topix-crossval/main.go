package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/cognicore/topix/internal/cli"
	"github.com/cognicore/topix/pkg/topix/eval"
)

func main() {
	flags := cli.Register(flag.CommandLine)
	flag.Parse()

	cfg, err := flags.Config()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Require("documents.dir"); err != nil {
		log.Fatalf("%v (use --dir)", err)
	}
	// Folds train throwaway models; nothing is persisted.
	cfg.Model.Path = ""

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, err := cli.Setup(ctx, cfg)
	if err != nil {
		log.Fatalf("setup: %v", err)
	}
	defer env.Close()

	docs, err := env.Topix.LoadDocuments(ctx, true)
	if err != nil {
		log.Fatalf("load documents: %v", err)
	}
	log.Printf("Cross-validating %d documents with %d folds", len(docs), cfg.CrossValidation.Folds)

	report, err := env.Topix.CrossValidate(ctx, docs)
	if err != nil {
		log.Fatalf("cross-validate: %v", err)
	}
	printReport(report)
}

func printReport(report eval.Report) {
	fmt.Println("fold\tdocs\tprecision\trecall\tf1")
	for _, f := range report.Folds {
		fmt.Printf("%d\t%d\t%.4f\t%.4f\t%.4f\n",
			f.Fold.Index+1, f.Fold.End-f.Fold.Start, f.Metrics.Precision, f.Metrics.Recall, f.Metrics.F1)
	}
	fmt.Printf("mean\t\t%.4f\t%.4f\t%.4f\n", report.Mean.Precision, report.Mean.Recall, report.Mean.F1)
}
