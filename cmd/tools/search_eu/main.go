package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/moritz/grantflow/internal/eu"
)

func main() {
	query := flag.String("q", "", "Search query (required)")
	includeExpired := flag.Bool("include-expired", false, "Skip the grace-period filter")
	timeoutSec := flag.Int("timeout-sec", 60, "HTTP timeout in seconds")
	flag.Parse()

	if *query == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutSec)*time.Second)
	defer cancel()

	client := eu.NewClient("")
	records, err := client.Search(ctx, *query)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	opps := eu.Normalize(records)
	if !*includeExpired {
		opps = eu.FilterExpired(opps, time.Now())
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Call ID", "Title", "Status", "Deadline", "Topic"})

	for _, opp := range opps {
		title := opp.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		deadline := opp.Deadline
		if deadline == "" {
			deadline = "-"
		}
		t.AppendRow(table.Row{opp.CallID, title, opp.Status, deadline, opp.Topic})
	}
	t.Render()

	fmt.Printf("%d calls (%d raw results)\n", len(opps), len(records))
}
