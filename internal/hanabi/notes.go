package hanabi

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const MaxNoteLength = 1000

var notePolicy = bluemonday.StrictPolicy()

// SanitizeNote strips any markup from a note and trims surrounding space. The
// result is plain text; clients must not render it as HTML.
func SanitizeNote(text string) (string, error) {
	note := strings.TrimSpace(html.UnescapeString(notePolicy.Sanitize(text)))
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return "", ErrNoteTooLong
	}
	return note, nil
}

// SetNote stores a user's note on a card. Every user has an independent set of
// notes; an empty note deletes the entry.
func (g *Game) SetNote(userID string, order int, text string) (string, error) {
	if _, ok := g.card(order); !ok {
		return "", ErrInvalidCard
	}
	note, err := SanitizeNote(text)
	if err != nil {
		return "", err
	}

	notes, ok := g.Notes[userID]
	if !ok {
		notes = make(map[int]string)
		g.Notes[userID] = notes
	}
	if note == "" {
		delete(notes, order)
	} else {
		notes[order] = note
	}
	return note, nil
}

func (g *Game) NotesFor(userID string) map[int]string {
	out := make(map[int]string, len(g.Notes[userID]))
	for order, note := range g.Notes[userID] {
		out[order] = note
	}
	return out
}
