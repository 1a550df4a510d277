package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"offerflow/internal/catalog"
	"offerflow/internal/config"
	"offerflow/internal/connectors"
	"offerflow/internal/intake"
	"offerflow/internal/ledger"
	"offerflow/internal/listener"
	"offerflow/internal/match"
	"offerflow/internal/offer"
	"offerflow/internal/pricing"
	"offerflow/internal/storage"
	"offerflow/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := zap.NewProduction()
	must(err)
	defer log.Sync()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	led, err := ledger.Open(cfg.LedgerPath, log)
	must(err)

	cmd := os.Args[1]
	switch cmd {
	case "catalog:sync":
		source, err := listener.MakeCatalogSource(cfg, log)
		must(err)
		svc := catalog.NewSyncService(db, source, log)
		count, err := svc.Sync(context.Background())
		must(err)
		fmt.Printf("catalog sync complete: %d rows\n", count)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.ListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.ListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := listener.MakeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, log)
		result, err := fetch.FetchAndStore(context.Background(), *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "offers:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.ListenerProvider, "gmail|imap")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		svc := listener.NewService(db, led, cfg, log)
		result, err := svc.ProcessPending(context.Background(), *provider, *batch)
		must(err)
		fmt.Printf("offers processed=%d skipped=%d failed=%d\n", result.Processed, result.Skipped, result.Failed)
	case "offers:list":
		records := led.GetAll()
		if len(records) == 0 {
			fmt.Println("no offers in the review queue")
			return
		}
		for _, record := range records {
			fmt.Printf("%s  %-10s  %-8s  %10.2f  %s  %s\n",
				record.ID, record.OfferNumber, record.Status, record.TotalAmount,
				record.CreatedAt.Format("2006-01-02 15:04"), record.CustomerName)
		}
	case "offers:send":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "pending offer id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*id) == "" {
			must(fmt.Errorf("--id is required"))
		}
		send, err := makeSendService(cfg, db, led, log)
		must(err)
		must(send.Approve(context.Background(), *id))
		fmt.Printf("offer %s sent\n", *id)
	case "offers:reject":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "pending offer id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*id) == "" {
			must(fmt.Errorf("--id is required"))
		}
		send, err := makeSendService(cfg, db, led, log)
		must(err)
		must(send.Reject(*id))
		fmt.Printf("offer %s rejected\n", *id)
	case "offers:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", filepath.Join(cfg.OutputDir, "pending_offers.xlsx"), "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		records := led.GetAll()
		if len(records) == 0 {
			must(fmt.Errorf("no offers to export"))
		}
		must(offer.ExportPendingToXLSX(records, *out))
		fmt.Printf("exported %d offers to %s\n", len(records), *out)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "path to a raw .eml file")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		raw, err := os.ReadFile(*input)
		must(err)
		msg, err := intake.ParseMessage("file", filepath.Base(*input), raw)
		must(err)

		adapter, err := listener.MakeAdapter(cfg, db, log)
		must(err)
		matcher := match.NewMatcher(adapter.Products, match.Thresholds{
			OK:     cfg.MatchOKThreshold,
			Review: cfg.MatchReviewThreshold,
			Gap:    cfg.MatchGapThreshold,
		}, log)
		pricer := pricing.NewService(adapter.Pricing, log)
		creator := offer.NewCreateService(adapter.Offers, log)
		engine := workflow.NewEngine(adapter, matcher, pricer, creator, led, nil, cfg.DefaultVATRate, log)

		wc, err := engine.Run(context.Background(), msg)
		must(err)
		fmt.Printf("run done offer=%s lines=%d warnings=%d pending=%s\n",
			wc.OfferNumber(), len(wc.Offer.Lines), len(wc.Warnings), wc.PendingID)
	case "mail:listen":
		svc := listener.NewService(db, led, cfg, log)
		must(svc.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

func makeSendService(cfg config.Config, db *storage.DB, led *ledger.Ledger, log *zap.Logger) (*workflow.SendService, error) {
	adapter, err := listener.MakeAdapter(cfg, db, log)
	if err != nil {
		return nil, err
	}
	creator := offer.NewCreateService(adapter.Offers, log)

	var dispatch workflow.OfferDispatcher
	if sender := listener.MakeSender(cfg, nil, log); sender != nil {
		dispatch = workflow.NewOfferMailer(sender)
	}
	return workflow.NewSendService(led, workflow.NewRegistry(), creator, dispatch, log), nil
}

func usage() {
	fmt.Println("usage: offerflow <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:sync")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  offers:process --provider=gmail|imap [--batch=20]")
	fmt.Println("  offers:list")
	fmt.Println("  offers:send --id=<pending id>")
	fmt.Println("  offers:reject --id=<pending id>")
	fmt.Println("  offers:export [--out=./out/pending_offers.xlsx]")
	fmt.Println("  run --input=./request.eml")
	fmt.Println("  mail:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
