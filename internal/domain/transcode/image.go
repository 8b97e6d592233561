package transcode

import (
	"bytes"
	"context"
	"image"
	"image/color"
	_ "image/gif"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/jpegli"
	"github.com/gen2brain/webp"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultJPEGQuality = 85
	DefaultPNGQuality  = 90
	DefaultWebPQuality = 85

	maxPaletteColors = 256
)

// ImageOptions bounds the output image. Zero values mean "unbounded" or "default quality".
type ImageOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// CompressedImage describes the buffer that will actually be stored.
type CompressedImage struct {
	Data             []byte
	MimeType         string
	Width            int
	Height           int
	OriginalSize     int64
	CompressedSize   int64
	CompressionRatio float64
}

// ImageTranscoder resizes and re-encodes uploaded images.
type ImageTranscoder struct {
	log zerolog.Logger
}

func NewImageTranscoder(log zerolog.Logger) *ImageTranscoder {
	return &ImageTranscoder{log: log.With().Str("component", "image-transcoder").Logger()}
}

// Compress never fails. When decoding or encoding goes wrong the original buffer is
// returned with a compression ratio of zero.
func (t *ImageTranscoder) Compress(ctx context.Context, data []byte, mimeType string, opts ImageOptions) *CompressedImage {
	out, err := t.compress(ctx, data, mimeType, opts)
	if err != nil {
		t.log.Warn().
			Err(err).
			Str("mime_type", mimeType).
			Int("bytes", len(data)).
			Msg("image transcode failed; storing original")
		return original(data, mimeType)
	}
	return out
}

func (t *ImageTranscoder) compress(ctx context.Context, data []byte, mimeType string, opts ImageOptions) (*CompressedImage, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	resized := false
	if needsResize(bounds.Dx(), bounds.Dy(), opts) {
		maxW, maxH := opts.MaxWidth, opts.MaxHeight
		if maxW <= 0 {
			maxW = bounds.Dx()
		}
		if maxH <= 0 {
			maxH = bounds.Dy()
		}
		img = imaging.Fit(img, maxW, maxH, imaging.Lanczos)
		resized = true
	}

	outMime := outputMime(mimeType)
	var buf bytes.Buffer
	switch outMime {
	case "image/png":
		err = encodePNG(&buf, img)
	case "image/webp":
		err = webp.Encode(&buf, img, webp.Options{
			Quality: qualityOr(opts.Quality, DefaultWebPQuality),
			Method:  6,
		})
	default:
		err = jpegli.Encode(&buf, flatten(img), &jpegli.EncodingOptions{
			Quality:          qualityOr(opts.Quality, DefaultJPEGQuality),
			ProgressiveLevel: 2,
		})
	}
	if err != nil {
		return nil, err
	}

	if !resized && outMime == mimeType && buf.Len() >= len(data) {
		return original(data, mimeType), nil
	}

	encoded := buf.Bytes()
	b := img.Bounds()
	return &CompressedImage{
		Data:             encoded,
		MimeType:         outMime,
		Width:            b.Dx(),
		Height:           b.Dy(),
		OriginalSize:     int64(len(data)),
		CompressedSize:   int64(len(encoded)),
		CompressionRatio: ratio(int64(len(data)), int64(len(encoded))),
	}, nil
}

func original(data []byte, mimeType string) *CompressedImage {
	out := &CompressedImage{
		Data:           data,
		MimeType:       mimeType,
		OriginalSize:   int64(len(data)),
		CompressedSize: int64(len(data)),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		out.Width = cfg.Width
		out.Height = cfg.Height
	}
	return out
}

func needsResize(width, height int, opts ImageOptions) bool {
	return (opts.MaxWidth > 0 && width > opts.MaxWidth) || (opts.MaxHeight > 0 && height > opts.MaxHeight)
}

// outputMime narrows every input format to the small set the catalog serves.
func outputMime(mimeType string) string {
	switch mimeType {
	case "image/png", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}

func qualityOr(quality, fallback int) int {
	if quality <= 0 || quality > 100 {
		return fallback
	}
	return quality
}

func ratio(originalSize, compressedSize int64) float64 {
	if originalSize <= 0 || compressedSize >= originalSize {
		return 0
	}
	return float64(originalSize-compressedSize) / float64(originalSize) * 100
}

// flatten composites transparent pixels onto white for formats without alpha.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func encodePNG(buf *bytes.Buffer, img image.Image) error {
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if paletted, ok := toPaletted(img); ok {
		return encoder.Encode(buf, paletted)
	}
	return encoder.Encode(buf, img)
}

// toPaletted converts img losslessly when it uses at most 256 distinct colours.
func toPaletted(img image.Image) (*image.Paletted, bool) {
	if p, ok := img.(*image.Paletted); ok {
		return p, true
	}
	b := img.Bounds()
	index := make(map[color.NRGBA]uint8, maxPaletteColors)
	palette := make(color.Palette, 0, maxPaletteColors)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if _, seen := index[c]; seen {
				continue
			}
			if len(palette) == maxPaletteColors {
				return nil, false
			}
			index[c] = uint8(len(palette))
			palette = append(palette, c)
		}
	}

	out := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetColorIndex(x-b.Min.X, y-b.Min.Y, index[c])
		}
	}
	return out, true
}
