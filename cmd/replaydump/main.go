// replaydump prints the reconstructed action log of a replay file.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/janpai/server/internal/engine"
	"github.com/janpai/server/internal/replay"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: replaydump <game_id.txt.gz>")
		os.Exit(1)
	}

	input, err := replay.Load(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("seed:    %s\n", input.Seed)
	fmt.Printf("players: %s\n", strings.Join(input.PlayerNames, ", "))
	fmt.Printf("events:  %d\n\n", len(input.Events))

	for i, ev := range input.Events {
		fmt.Printf("%4d  %-12s %-16s%s\n", i+1, ev.PlayerName, ev.Action, dataString(ev.Data))
	}
}

func dataString(data engine.ActionData) string {
	var parts []string
	if data.TileID != nil {
		parts = append(parts, fmt.Sprintf("tile=%d", *data.TileID))
	}
	if len(data.SequenceTiles) > 0 {
		tiles := make([]string, len(data.SequenceTiles))
		for i, t := range data.SequenceTiles {
			tiles[i] = fmt.Sprintf("%d", int(t))
		}
		parts = append(parts, "sequence="+strings.Join(tiles, "+"))
	}
	if data.KanType != "" {
		parts = append(parts, "kan="+string(data.KanType))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
