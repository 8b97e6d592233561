package transcode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// ErrUnsupportedAudio is returned when the container cannot be identified.
var ErrUnsupportedAudio = errors.New("unsupported audio format")

// AudioMetadata holds technical properties read from container and stream headers.
// Duration is in whole seconds and Bitrate in kbps.
type AudioMetadata struct {
	Duration   int    `json:"duration"`
	Bitrate    int    `json:"bitrate"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels,omitempty"`
	Format     string `json:"format"`
	Size       int64  `json:"size"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
}

// ExtractAudioMetadata parses headers without decoding or re-encoding audio.
// Containers with no duration parser (ogg, m4a, aac) return format and size only.
func ExtractAudioMetadata(data []byte, filename string) (*AudioMetadata, error) {
	meta := &AudioMetadata{
		Format: AudioFormat(data, filename),
		Size:   int64(len(data)),
	}
	if meta.Format == "" {
		return meta, ErrUnsupportedAudio
	}

	if tags, err := tag.ReadFrom(bytes.NewReader(data)); err == nil {
		meta.Title = strings.TrimSpace(tags.Title())
		meta.Artist = strings.TrimSpace(tags.Artist())
	}

	var err error
	switch meta.Format {
	case "mp3":
		err = readMP3(data, meta)
	case "wav":
		err = readWAV(data, meta)
	case "flac":
		err = readFLAC(data, meta)
	}
	if err != nil {
		return meta, fmt.Errorf("read %s headers: %w", meta.Format, err)
	}
	return meta, nil
}

// AudioFormat returns a short container name from content, falling back to the extension.
func AudioFormat(data []byte, filename string) string {
	detected := mimetype.Detect(data)
	switch {
	case detected.Is("audio/mpeg"):
		return "mp3"
	case detected.Is("audio/wav"):
		return "wav"
	case detected.Is("audio/flac"):
		return "flac"
	case detected.Is("audio/ogg"), detected.Is("application/ogg"):
		return "ogg"
	case detected.Is("audio/x-m4a"), detected.Is("audio/mp4"):
		return "m4a"
	case detected.Is("audio/aac"):
		return "aac"
	}

	switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); ext {
	case "mp3", "wav", "flac", "ogg", "m4a", "aac":
		return ext
	}
	return ""
}

func readMP3(data []byte, meta *AudioMetadata) error {
	decoder := mp3.NewDecoder(bytes.NewReader(data))

	var (
		frame    mp3.Frame
		skipped  int
		total    time.Duration
		frames   int64
		bitSum   int64
		firstErr error
	)
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				firstErr = err
			}
			break
		}
		header := frame.Header()
		total += frame.Duration()
		frames++
		if rate := int64(header.BitRate()); rate > 0 {
			bitSum += rate
		}
		if meta.SampleRate == 0 {
			meta.SampleRate = int(header.SampleRate())
		}
	}
	if frames == 0 {
		if firstErr != nil {
			return firstErr
		}
		return errors.New("no mpeg frames found")
	}

	meta.Duration = int(math.Round(total.Seconds()))
	meta.Bitrate = int(math.Round(float64(bitSum) / float64(frames) / 1000))
	return nil
}

func readWAV(data []byte, meta *AudioMetadata) error {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return err
	}
	if decoder.SampleRate == 0 || decoder.NumChans == 0 || decoder.BitDepth == 0 {
		return errors.New("invalid wav format chunk")
	}
	if err := decoder.FwdToPCM(); err != nil {
		return err
	}

	bytesPerSec := float64(decoder.SampleRate) * float64(decoder.NumChans) * float64(decoder.BitDepth) / 8
	meta.SampleRate = int(decoder.SampleRate)
	meta.Channels = int(decoder.NumChans)
	meta.Duration = int(math.Round(float64(decoder.PCMSize) / bytesPerSec))
	meta.Bitrate = int(math.Round(bytesPerSec * 8 / 1000))
	return nil
}

func readFLAC(data []byte, meta *AudioMetadata) error {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.SampleRate == 0 {
		return errors.New("missing flac stream info")
	}
	seconds := float64(info.NSamples) / float64(info.SampleRate)
	meta.SampleRate = int(info.SampleRate)
	meta.Channels = int(info.NChannels)
	meta.Duration = int(math.Round(seconds))
	if seconds > 0 {
		meta.Bitrate = int(math.Round(float64(len(data)) * 8 / seconds / 1000))
	}
	return nil
}
