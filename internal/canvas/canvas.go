// Package canvas replays a round's stroke-event log. The log, not the list of
// stored strokes, decides what is on the canvas.
package canvas

import (
	"slices"

	"github.com/npezzotti/go-drawsync/internal/game"
)

// Visible returns the ids of the strokes still on the canvas, oldest first,
// after folding every event in sequence order.
func Visible(events []game.StrokeEvent) []string {
	return fold(events)
}

// UndoTarget returns the stroke a new UNDO would remove: the top of the
// visible stack before the UNDO is appended. ok is false when nothing is left
// to undo.
func UndoTarget(events []game.StrokeEvent) (strokeID string, ok bool) {
	stack := fold(events)
	if len(stack) == 0 {
		return "", false
	}
	return stack[len(stack)-1], true
}

// NextSeq is the sequence number the next event of the log takes.
func NextSeq(events []game.StrokeEvent) int {
	last := 0
	for _, ev := range events {
		if ev.Seq > last {
			last = ev.Seq
		}
	}
	return last + 1
}

func fold(events []game.StrokeEvent) []string {
	ordered := slices.Clone(events)
	slices.SortStableFunc(ordered, func(a, b game.StrokeEvent) int {
		return a.Seq - b.Seq
	})

	var stack []string
	for _, ev := range ordered {
		switch ev.Type {
		case game.StrokeDraw:
			if ev.StrokeID != "" {
				stack = append(stack, ev.StrokeID)
			}
		case game.StrokeUndo:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case game.StrokeClear:
			stack = stack[:0]
		case game.StrokeErase:
			if i := slices.Index(stack, ev.StrokeID); i >= 0 {
				stack = slices.Delete(stack, i, i+1)
			}
		}
	}
	return stack
}
