// Command replay drives the matching engine from a CSV tape without
// starting any operator surface, either to sanity-check a tape file
// or to pre-build its timestamp index.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"tickbook/domain/book"
	"tickbook/domain/driver"
	"tickbook/domain/replay"
)

func main() {
	csvPath := flag.String("csv", "", "path to the CSV tape to replay")
	buildIndex := flag.String("build-index", "", "if set, build a timestamp index at this directory and exit")
	speed := flag.Float64("speed", math.Inf(1), "playback speed multiplier; defaults to as-fast-as-possible")
	depth := flag.Int("depth", 10, "number of price levels per side kept in book snapshots")
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -csv=<path> [-build-index=<dir>] [-speed=1.0]")
		os.Exit(2)
	}

	if *buildIndex != "" {
		idx, err := replay.BuildTimestampIndex(*csvPath, *buildIndex)
		if err != nil {
			fmt.Fprintf(os.Stderr, "build-index failed: %v\n", err)
			os.Exit(1)
		}
		idx.Close()
		fmt.Printf("wrote timestamp index to %s\n", *buildIndex)
		return
	}

	source, err := replay.Open(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", *csvPath, err)
		os.Exit(1)
	}
	if err := source.SetPlaybackSpeed(*speed); err != nil {
		fmt.Fprintf(os.Stderr, "invalid speed: %v\n", err)
		os.Exit(1)
	}

	engine := book.NewBook(book.WithDepth(*depth))
	d := driver.New(source, engine, tradePrinter{}, nil, 0, nil)

	if err := d.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "replay failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("replay complete, %d malformed rows skipped\n", d.RowErrors())
	snap := engine.Snapshot()
	if snap.BestBid != nil && snap.BestAsk != nil {
		fmt.Printf("final book: bid=%d ask=%d\n", *snap.BestBid, *snap.BestAsk)
	} else {
		fmt.Println("final book: empty")
	}
}

type tradePrinter struct{}

func (tradePrinter) OnTrades(trades []book.Trade) {
	for _, t := range trades {
		fmt.Printf("trade taker=%d maker=%d price=%d qty=%d\n", t.TakerID, t.MakerID, t.Price, t.Qty)
	}
}
