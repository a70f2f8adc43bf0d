package transcript

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Turn is one contiguous block of text attributed to one speaker, in
// original speaking order.
type Turn struct {
	Speaker string
	Text    string
}

// ErrNoLeadingSpeaker is returned when the transcript begins with text that
// carries no speaker label, so attribution would be a guess.
var ErrNoLeadingSpeaker = errors.New("transcript starts without a speaker label")

// UnrecognizedSpeakerError is returned in strict mode when a line looks like
// a speaker label but matches neither configured name.
type UnrecognizedSpeakerError struct {
	Name string
	Line int
}

func (e *UnrecognizedSpeakerError) Error() string {
	return fmt.Sprintf("unrecognized speaker %q on line %d", e.Name, e.Line)
}

// labelPattern matches lines that read like "Somebody: ..." so strict mode
// can reject labels outside the configured pair.
var labelPattern = regexp.MustCompile(`^[A-Za-z][\w .'-]*:\s`)

// Parser splits a raw transcript into ordered speaker turns.
type Parser struct {
	speaker1 string
	speaker2 string
	strict   bool
	log      *slog.Logger
}

func NewParser(speaker1, speaker2 string, strict bool, log *slog.Logger) *Parser {
	return &Parser{
		speaker1: speaker1,
		speaker2: speaker2,
		strict:   strict,
		log:      log.With(slog.String("component", "dialogue-parser")),
	}
}

// Parse produces the turn sequence for raw transcript text. Lines of the
// form "Name: text" open a new turn when Name is one of the two configured
// speakers (case-sensitive exact match). Any other line continues the
// previous turn, joined with a single space. An empty transcript yields an
// empty turn slice and no error.
func (p *Parser) Parse(raw string) ([]Turn, error) {
	var turns []Turn

	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if speaker, text, ok := p.matchSpeaker(line); ok {
			turns = append(turns, Turn{Speaker: speaker, Text: text})
			continue
		}

		if p.strict && labelPattern.MatchString(line) {
			name := line[:strings.IndexByte(line, ':')]
			return nil, &UnrecognizedSpeakerError{Name: name, Line: i + 1}
		}

		if len(turns) == 0 {
			return nil, fmt.Errorf("line %d: %w", i+1, ErrNoLeadingSpeaker)
		}
		last := &turns[len(turns)-1]
		if last.Text == "" {
			last.Text = line
		} else {
			last.Text += " " + line
		}
	}

	// Turns whose label carried no text at all are dropped.
	kept := turns[:0]
	for _, t := range turns {
		if strings.TrimSpace(t.Text) != "" {
			kept = append(kept, t)
		} else {
			p.log.Debug("dropping empty turn", slog.String("speaker", t.Speaker))
		}
	}
	return kept, nil
}

func (p *Parser) matchSpeaker(line string) (speaker, text string, ok bool) {
	for _, name := range []string{p.speaker1, p.speaker2} {
		prefix := name + ":"
		if strings.HasPrefix(line, prefix) {
			return name, strings.TrimSpace(line[len(prefix):]), true
		}
	}
	return "", "", false
}
