package audio

import (
	"fmt"
	"time"
)

// Piece is one ordered unit of assembly: an optional clip followed by its
// trailing silence. A nil Clip contributes silence only.
type Piece struct {
	Clip            *Clip
	TrailingSilence time.Duration
}

// Clip is raw synthesized PCM for one segment.
type Clip struct {
	PCM    []byte
	Format Format
}

// Assemble concatenates pieces in order into one track: clip audio, then the
// producing piece's trailing silence. No cross-fading, no normalization.
func Assemble(pieces []Piece, target Format) (*Track, error) {
	track := NewTrack(target)
	for i, p := range pieces {
		if p.Clip != nil {
			if err := track.AppendPCM(p.Clip.PCM, p.Clip.Format); err != nil {
				return nil, fmt.Errorf("piece %d: %w", i, err)
			}
		}
		track.AppendSilence(p.TrailingSilence)
	}
	return track, nil
}
