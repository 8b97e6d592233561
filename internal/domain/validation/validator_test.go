package validation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/media-storage/internal/utils/platformerrors"
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	gifMagic  = []byte("GIF89a")
)

func padded(prefix []byte, size int) []byte {
	buf := make([]byte, size)
	copy(buf, prefix)
	return buf
}

func TestValidate_AcceptsJPEGAndOverridesDeclaredType(t *testing.T) {
	file, err := Validate(context.Background(), padded(jpegMagic, 512), "application/octet-stream", "photo.JPG", ImagePolicy(1024))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", file.MimeType)
	assert.Equal(t, ".jpg", file.Extension)
	assert.Equal(t, int64(512), file.Size)
	assert.Equal(t, "photo.JPG", file.OriginalName)
}

func TestValidate_RejectsEmpty(t *testing.T) {
	_, err := Validate(context.Background(), nil, "image/png", "a.png", ImagePolicy(1024))
	assert.ErrorIs(t, err, ErrEmptyFile)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestValidate_SizeBoundary(t *testing.T) {
	policy := ImagePolicy(2048)

	_, err := Validate(context.Background(), padded(pngMagic, 2048), "image/png", "exact.png", policy)
	assert.NoError(t, err)

	_, err = Validate(context.Background(), padded(pngMagic, 2049), "image/png", "over.png", policy)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestValidate_RejectsSpoofedType(t *testing.T) {
	policy := Policy{
		Category:          "image",
		MaxFileSize:       4096,
		AllowedMimeTypes:  []string{"image/png"},
		AllowedExtensions: []string{".png", ".jpg"},
	}
	for _, declared := range []string{"image/png", "image/jpeg", ""} {
		_, err := Validate(context.Background(), padded(jpegMagic, 256), declared, "looks-like.png", policy)
		assert.ErrorIs(t, err, ErrMimeTypeNotAllowed, declared)
	}

	_, err := Validate(context.Background(), padded(gifMagic, 256), "image/png", "anim.png", policy)
	assert.ErrorIs(t, err, ErrMimeTypeNotAllowed)
}

func TestValidate_RejectsDisallowedExtension(t *testing.T) {
	_, err := Validate(context.Background(), padded(pngMagic, 64), "image/png", "image.bmp", ImagePolicy(1024))
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)
}

func TestValidate_RenamedExecutableFailsOnSignature(t *testing.T) {
	payload := padded([]byte{0x4D, 0x5A, 0x90, 0x00, 0x03, 0x00}, 1024)

	_, err := Validate(context.Background(), payload, "image/jpeg", "photo.jpg", ImagePolicy(10*1024*1024))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSuspiciousSignature)
	assert.Contains(t, err.Error(), "suspicious file signature")
}

func TestValidate_RejectsExecutableSignatures(t *testing.T) {
	signatures := [][]byte{
		{0x7F, 'E', 'L', 'F', 0x02},
		{0xCA, 0xFE, 0xBA, 0xBE},
		{0xCF, 0xFA, 0xED, 0xFE},
	}
	for _, sig := range signatures {
		_, err := Validate(context.Background(), padded(sig, 128), "application/zip", "bundle.zip", DownloadPolicy(1024))
		assert.ErrorIs(t, err, ErrSuspiciousSignature)
	}
}

func TestValidate_RejectsScriptInImage(t *testing.T) {
	data := append([]byte{}, jpegMagic...)
	data = append(data, []byte("Exif comment <SCRIPT>alert(1)</script>")...)
	data = append(data, bytes.Repeat([]byte{0}, 64)...)

	_, err := Validate(context.Background(), data, "image/jpeg", "cat.jpg", ImagePolicy(4096))
	assert.ErrorIs(t, err, ErrSuspiciousContent)
}

func TestValidate_ScriptScanLimitedToFirstKilobyte(t *testing.T) {
	data := padded(jpegMagic, 2048)
	copy(data[1500:], "<script>")

	_, err := Validate(context.Background(), data, "image/jpeg", "cat.jpg", ImagePolicy(4096))
	assert.NoError(t, err)
}

func TestValidate_RejectsServerExecutableFilename(t *testing.T) {
	_, err := Validate(context.Background(), padded(jpegMagic, 64), "image/jpeg", "shell.php.jpg", ImagePolicy(4096))
	assert.ErrorIs(t, err, ErrSuspiciousFilename)
}

func TestValidate_AudioAliases(t *testing.T) {
	wav := padded([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), 64)
	file, err := Validate(context.Background(), wav, "audio/x-wav", "take.wav", AudioPolicy(1024))
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", file.MimeType)
}

func TestValidateName(t *testing.T) {
	ext, err := ValidateName(context.Background(), "Album.ZIP", DownloadPolicy(1))
	require.NoError(t, err)
	assert.Equal(t, ".zip", ext)

	_, err = ValidateName(context.Background(), "index.html.zip", DownloadPolicy(1))
	assert.True(t, errors.Is(err, ErrSuspiciousFilename))
}

func TestSanitizeDisplayName(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeDisplayName("../../etc/passwd"))
	assert.Equal(t, "evil.jpg", SanitizeDisplayName(`C:\Users\me\evil.jpg`))
	assert.Equal(t, "name.mp3", SanitizeDisplayName("na\x00me.mp3"))
	assert.Equal(t, "file", SanitizeDisplayName("   "))
	assert.Equal(t, "ABC.png", SanitizeDisplayName("ＡＢＣ.png"))
	assert.LessOrEqual(t, len(SanitizeDisplayName(strings.Repeat("é", 300))), 255)
}
