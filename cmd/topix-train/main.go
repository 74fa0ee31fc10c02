package main

import (
	"context"
	"flag"
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

	docs, err := env.Topix.LoadDocuments(ctx, true)
	if err != nil {
		log.Fatalf("load documents: %v", err)
	}
	log.Printf("Loaded %d training documents from %s", len(docs), cfg.Documents.Dir)

	m, err := env.Topix.Train(ctx, docs)
	if err != nil {
		log.Fatalf("train: %v", err)
	}
	log.Printf("Saved model %s (%s, %d features) to %s", cfg.Model.Name, m.ID, len(m.Schema), cfg.Model.Path)
}
