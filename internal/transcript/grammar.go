package transcript

import (
	"strings"
	"time"
)

// MarkerKind identifies one of the recognized inline transcript tags.
type MarkerKind int

const (
	MarkerPauseShort MarkerKind = iota
	MarkerPauseMedium
	MarkerPauseLong
	MarkerBreath
	MarkerThoughtful
	MarkerEmphasisStart
	MarkerEmphasisEnd
)

// Marker is one entry of the closed marker grammar. Pause-like markers carry
// the silence they insert; emphasis markers carry none.
type Marker struct {
	Kind    MarkerKind
	Silence time.Duration
}

// IsPause reports whether the marker splits text and inserts silence.
func (m Marker) IsPause() bool {
	switch m.Kind {
	case MarkerPauseShort, MarkerPauseMedium, MarkerPauseLong, MarkerBreath, MarkerThoughtful:
		return true
	}
	return false
}

// markerTable maps literal tag text to its semantic effect. New markers
// extend this table; nothing else in the package switches on tag strings.
var markerTable = map[string]Marker{
	"[pause-short]":  {Kind: MarkerPauseShort, Silence: 300 * time.Millisecond},
	"[pause-medium]": {Kind: MarkerPauseMedium, Silence: 700 * time.Millisecond},
	"[pause-long]":   {Kind: MarkerPauseLong, Silence: 1200 * time.Millisecond},
	"[breath]":       {Kind: MarkerBreath, Silence: 400 * time.Millisecond},
	"[thoughtful]":   {Kind: MarkerThoughtful, Silence: 500 * time.Millisecond},
	"[emphasis]":     {Kind: MarkerEmphasisStart},
	"[/emphasis]":    {Kind: MarkerEmphasisEnd},
}

type tokenType int

const (
	tokenText tokenType = iota
	tokenMarker
)

type token struct {
	typ    tokenType
	text   string
	marker Marker
}

// tokenize splits raw text into text runs and recognized markers in a single
// left-to-right pass. Unrecognized bracketed tags (stage directions such as
// [TRANSITION] or [SOUND EFFECT: ...]) are dropped from the text entirely.
func tokenize(text string) []token {
	var tokens []token
	rest := text
	for {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			if rest != "" {
				tokens = append(tokens, token{typ: tokenText, text: rest})
			}
			return tokens
		}
		closing := strings.IndexByte(rest[open:], ']')
		if closing < 0 {
			// Dangling bracket, treat the remainder as plain text.
			tokens = append(tokens, token{typ: tokenText, text: rest})
			return tokens
		}
		closing += open
		if open > 0 {
			tokens = append(tokens, token{typ: tokenText, text: rest[:open]})
		}
		tag := rest[open : closing+1]
		if m, ok := markerTable[tag]; ok {
			tokens = append(tokens, token{typ: tokenMarker, marker: m})
		}
		rest = rest[closing+1:]
	}
}

// StripMarkers removes every recognized (and unrecognized bracketed) tag from
// text and normalizes whitespace, producing the marker-free reading text.
func StripMarkers(text string) string {
	var parts []string
	for _, tok := range tokenize(text) {
		if tok.typ != tokenText {
			continue
		}
		parts = append(parts, strings.Fields(tok.text)...)
	}
	return strings.Join(parts, " ")
}

// WordCount counts words in the marker-stripped text. Stable across
// whitespace and marker-only differences.
func WordCount(text string) int {
	return len(strings.Fields(StripMarkers(text)))
}
