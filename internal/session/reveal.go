package session

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"jobhelper/internal/llm"
)

// Step is one unit of the reveal: Chunk is the newly shown rune, Text the prefix shown so far.
type Step struct {
	Pos   int
	Chunk string
	Text  string
}

// Steps yields text one rune at a time. Each call returns a fresh sequence.
func Steps(text string) iter.Seq[Step] {
	return func(yield func(Step) bool) {
		pos := 0
		for offset := 0; offset < len(text); {
			_, width := utf8.DecodeRuneInString(text[offset:])
			next := offset + width
			if !yield(Step{Pos: pos, Chunk: text[offset:next], Text: text[:next]}) {
				return
			}
			offset = next
			pos++
		}
	}
}

// Serialize renders pairs in display order, numbering from 1.
func Serialize(pairs []llm.QAPair) string {
	blocks := make([]string, 0, len(pairs))
	for i, p := range pairs {
		blocks = append(blocks, fmt.Sprintf("Q%d: %s\nA%d: %s", i+1, p.Question, i+1, p.Answer))
	}
	return strings.Join(blocks, "\n\n")
}

// Play emits the steps of seq one per tick until the sequence ends or ctx is cancelled.
// It reports whether the sequence ran to completion.
func Play(ctx context.Context, seq iter.Seq[Step], tick time.Duration, emit func(Step)) bool {
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for step := range seq {
		if ctx.Err() != nil {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return false
		}
		emit(step)
	}
	return ctx.Err() == nil
}
