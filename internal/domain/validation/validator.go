package validation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/utils/platformerrors"
)

var (
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = errors.New("file too large")
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	ErrSuspiciousSignature = errors.New("suspicious file signature")
	ErrMimeTypeNotAllowed  = errors.New("mime type not allowed")
	ErrSuspiciousContent   = errors.New("suspicious embedded content")
	ErrSuspiciousFilename  = errors.New("suspicious filename")
)

const scriptScanWindow = 1024

var executableSignatures = []struct {
	name  string
	magic []byte
}{
	{"PE", []byte("MZ")},
	{"ELF", []byte{0x7F, 'E', 'L', 'F'}},
	{"Java class", []byte{0xCA, 0xFE, 0xBA, 0xBE}},
	{"Mach-O", []byte{0xFE, 0xED, 0xFA, 0xCE}},
	{"Mach-O", []byte{0xFE, 0xED, 0xFA, 0xCF}},
	{"Mach-O", []byte{0xCE, 0xFA, 0xED, 0xFE}},
	{"Mach-O", []byte{0xCF, 0xFA, 0xED, 0xFE}},
}

var scriptMarkers = []string{"<script", "<?php", "<%", "javascript:", "vbscript:", "<html", "<body"}

var serverExecutablePattern = regexp.MustCompile(`(?i)\.(php|jsp|asp|js|html|htm)(\.|$)`)

// ValidatedFile is an upload that passed every check. MimeType is the sniffed type.
type ValidatedFile struct {
	Data         []byte
	MimeType     string
	Extension    string
	OriginalName string
	Size         int64
	Category     string
}

// Validate runs the upload checks in order and stops at the first failure.
// The declared MIME type is informational only; the sniffed type wins.
func Validate(ctx context.Context, data []byte, declaredMimeType, filename string, policy Policy) (*ValidatedFile, error) {
	if len(data) == 0 {
		return nil, reject(ctx, ErrEmptyFile, "file is empty", "4f0f6a52-1b7e-4b38-9d0e-7a2f1c7f3a01")
	}

	size := int64(len(data))
	if size > policy.MaxFileSize {
		return nil, reject(ctx, ErrFileTooLarge,
			fmt.Sprintf("file exceeds max size of %d bytes", policy.MaxFileSize),
			"8b1f5d1c-3b25-4c59-a0c4-6a0b9d2e4a02")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !policy.allowsExtension(ext) {
		return nil, reject(ctx, ErrExtensionNotAllowed,
			fmt.Sprintf("file extension %q is not allowed", ext),
			"2d7a9e34-9f1b-4b6e-8c5d-1e3f7b9a4a03")
	}

	if name, ok := executableSignature(data); ok {
		return nil, reject(ctx, ErrSuspiciousSignature,
			fmt.Sprintf("suspicious file signature detected (%s)", name),
			"c6e2b4f8-5a7d-4e1c-9b3a-2f8d6c1e4a04")
	}

	detected := mimetype.Detect(data)
	mimeType, ok := matchMime(detected, policy.AllowedMimeTypes)
	if !ok {
		return nil, reject(ctx, ErrMimeTypeNotAllowed,
			fmt.Sprintf("file type %s is not allowed", detected.String()),
			"7a3c1e9d-2b4f-4d6a-8e1c-5f9b3d7a4a05")
	}

	if isImage(policy, mimeType) {
		if marker, found := scriptMarker(data); found {
			return nil, reject(ctx, ErrSuspiciousContent,
				fmt.Sprintf("image contains suspicious content (%s)", marker),
				"e1b9d3a7-6c2f-4f8e-b4d1-3a7c9e5b4a06")
		}
	}

	if serverExecutablePattern.MatchString(filename) {
		return nil, reject(ctx, ErrSuspiciousFilename,
			"filename contains a server-executable extension",
			"9d5f7b1e-4a3c-4b2d-8f6e-1c9a5d3b4a07")
	}

	return &ValidatedFile{
		Data:         data,
		MimeType:     mimeType,
		Extension:    ext,
		OriginalName: SanitizeDisplayName(filename),
		Size:         size,
		Category:     policy.Category,
	}, nil
}

// ValidateName applies the filename-only checks used when content is not available,
// such as direct-to-store presigned uploads.
func ValidateName(ctx context.Context, filename string, policy Policy) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !policy.allowsExtension(ext) {
		return "", reject(ctx, ErrExtensionNotAllowed,
			fmt.Sprintf("file extension %q is not allowed", ext),
			"2d7a9e34-9f1b-4b6e-8c5d-1e3f7b9a4a08")
	}
	if serverExecutablePattern.MatchString(filename) {
		return "", reject(ctx, ErrSuspiciousFilename,
			"filename contains a server-executable extension",
			"9d5f7b1e-4a3c-4b2d-8f6e-1c9a5d3b4a09")
	}
	return ext, nil
}

func reject(ctx context.Context, sentinel error, message, code string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, message, sentinel, code)
}

func executableSignature(data []byte) (string, bool) {
	for _, sig := range executableSignatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.name, true
		}
	}
	return "", false
}

// matchMime returns the canonical allowed type that the detected MIME satisfies.
// mimetype.Is also matches aliases such as audio/x-wav.
func matchMime(detected *mimetype.MIME, allowed []string) (string, bool) {
	if detected == nil {
		return "", false
	}
	for _, candidate := range allowed {
		if detected.Is(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isImage(policy Policy, mimeType string) bool {
	return policy.Category == config.CategoryImage || strings.HasPrefix(mimeType, "image/")
}

func scriptMarker(data []byte) (string, bool) {
	window := data
	if len(window) > scriptScanWindow {
		window = window[:scriptScanWindow]
	}
	text := strings.ToLower(string(window))
	for _, marker := range scriptMarkers {
		if strings.Contains(text, marker) {
			return marker, true
		}
	}
	return "", false
}
