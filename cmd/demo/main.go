package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/yiblet/ammo/internal/classify"
	"github.com/yiblet/ammo/internal/clipboard"
	"github.com/yiblet/ammo/internal/clipboard/mockboard"
	"github.com/yiblet/ammo/internal/engine"
	"github.com/yiblet/ammo/internal/history"
	"github.com/yiblet/ammo/internal/search"
	"github.com/yiblet/ammo/internal/selection"
	"github.com/yiblet/ammo/internal/store/memstore"
)

func main() {
	fmt.Println("ammo Clipboard History Demo")

	db := memstore.NewMemoryStore()
	defer db.Close()

	clips, err := history.New(db.History(), 0)
	if err != nil {
		log.Fatalf("Failed to create history: %v", err)
	}

	board := mockboard.New()
	eng := engine.New(clips, board, engine.Options{PollInterval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := eng.Subscribe()
	defer unsubscribe()
	go func() {
		if err := eng.Run(ctx); err != nil {
			log.Printf("Engine stopped: %v", err)
		}
	}()

	copies := []clipboard.Snapshot{
		{Formats: []string{clipboard.FormatText}, Text: "git push origin main"},
		{Formats: []string{clipboard.FormatText, clipboard.FormatHTML}, Text: "bold move", HTML: "<b>bold move</b>"},
		{Formats: []string{clipboard.FormatText, clipboard.FormatCode}, Text: "func main() {\n\tfmt.Println(\"hi\")\n}"},
		{Formats: []string{clipboard.FormatText}, Text: "git status"},
		{Formats: []string{clipboard.FormatText}, Text: "git push origin main"},
	}

	fmt.Println("Copying to the clipboard:")
	for _, snap := range copies {
		board.SetSnapshot(snap)
		ev, ok := waitForNewClip(events)
		if !ok {
			log.Fatalf("Timed out waiting for the watcher")
		}
		fmt.Printf("  captured [%s] %s (evicted %d)\n", ev.Clip.Kind, classify.Preview(ev.Clip, 40), len(ev.Evicted))
	}

	list, err := eng.Refresh(ctx)
	if err != nil {
		log.Fatalf("Failed to refresh: %v", err)
	}

	sel := selection.New(selection.DefaultWindowLimit, selection.DefaultMaxShortcuts)
	sel.Replace(list)

	fmt.Printf("\nHistory (%d, the repeated copy moved to the front):\n", sel.Len())
	printVisible(sel)

	res := search.Run(search.NewSearcher().Start("git", list))
	sel.SetSearch(res)
	fmt.Printf("\nSearch %q:\n", res.Query)
	printVisible(sel)

	sel.Down()
	picked, _ := sel.Selected()
	if err := eng.Write(ctx, picked.ID); err != nil {
		log.Fatalf("Failed to write: %v", err)
	}
	writes := board.Writes()
	last := writes[len(writes)-1]
	fmt.Printf("\nRestored %q as %s\n", last.Data, last.Format)

	fmt.Printf("\nDemo complete! (Using in-memory store)\n")
}

func waitForNewClip(events <-chan engine.Event) (engine.EventNewClip, bool) {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if nc, ok := ev.(engine.EventNewClip); ok {
				return nc, true
			}
		case <-timeout:
			return engine.EventNewClip{}, false
		}
	}
}

func printVisible(sel *selection.Controller) {
	pos := sel.Position()
	for i, clip := range sel.Visible() {
		cursor := " "
		if i == pos {
			cursor = ">"
		}
		prefix := "  "
		if n, ok := sel.Shortcut(i); ok {
			prefix = fmt.Sprintf("%d.", n)
		}
		fmt.Printf("%s %s %s\n", cursor, prefix, classify.Preview(clip, 40))
	}
}
