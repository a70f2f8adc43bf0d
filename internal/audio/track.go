package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Format describes PCM s16le audio parameters.
type Format struct {
	SampleRate int
	Channels   int
}

func (f Format) bytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Track is a single continuous PCM stream in one fixed format. Clips in
// other formats are normalized on append; mixing formats silently corrupts
// output, so the conversion is unconditional.
type Track struct {
	format Format
	pcm    []byte
}

func NewTrack(format Format) *Track {
	return &Track{format: format}
}

func (t *Track) Format() Format { return t.format }

func (t *Track) PCM() []byte { return t.pcm }

// Duration is the exact playback length of the accumulated PCM.
func (t *Track) Duration() time.Duration {
	samples := len(t.pcm) / (2 * t.format.Channels)
	return time.Duration(samples) * time.Second / time.Duration(t.format.SampleRate)
}

// AppendPCM adds raw audio already in the track format.
func (t *Track) AppendPCM(pcm []byte, from Format) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("pcm payload has odd length %d", len(pcm))
	}
	if from == t.format {
		t.pcm = append(t.pcm, pcm...)
		return nil
	}
	converted, err := convert(pcm, from, t.format)
	if err != nil {
		return err
	}
	t.pcm = append(t.pcm, converted...)
	return nil
}

// AppendSilence extends the track with d of zero samples.
func (t *Track) AppendSilence(d time.Duration) {
	if d <= 0 {
		return
	}
	n := int(d * time.Duration(t.format.bytesPerSecond()) / time.Second)
	n -= n % (2 * t.format.Channels) // keep frame alignment
	t.pcm = append(t.pcm, make([]byte, n)...)
}

// convert reformats s16le PCM between sample rates and channel counts:
// channels are folded (or duplicated) first, then the stream is resampled by
// nearest-sample selection.
func convert(pcm []byte, from, to Format) ([]byte, error) {
	if from.SampleRate <= 0 || from.Channels <= 0 {
		return nil, fmt.Errorf("invalid source format %+v", from)
	}
	samples := decodeS16LE(pcm)
	frames := len(samples) / from.Channels
	samples = samples[:frames*from.Channels]

	if from.Channels != to.Channels {
		samples = remapChannels(samples, from.Channels, to.Channels)
		frames = len(samples) / to.Channels
	}
	if from.SampleRate != to.SampleRate {
		samples = resample(samples, to.Channels, frames, from.SampleRate, to.SampleRate)
	}
	return encodeS16LE(samples), nil
}

func remapChannels(samples []int16, from, to int) []int16 {
	frames := len(samples) / from
	out := make([]int16, 0, frames*to)
	for f := 0; f < frames; f++ {
		var sum int
		for c := 0; c < from; c++ {
			sum += int(samples[f*from+c])
		}
		mono := int16(sum / from)
		for c := 0; c < to; c++ {
			out = append(out, mono)
		}
	}
	return out
}

func resample(samples []int16, channels, frames, fromRate, toRate int) []int16 {
	outFrames := int(int64(frames) * int64(toRate) / int64(fromRate))
	out := make([]int16, 0, outFrames*channels)
	for f := 0; f < outFrames; f++ {
		src := int(int64(f) * int64(fromRate) / int64(toRate))
		if src >= frames {
			src = frames - 1
		}
		for c := 0; c < channels; c++ {
			out = append(out, samples[src*channels+c])
		}
	}
	return out
}

func decodeS16LE(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

func encodeS16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
