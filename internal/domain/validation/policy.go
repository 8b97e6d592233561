package validation

import (
	"strings"

	"jan-server/services/media-storage/internal/config"
)

// Policy bounds what a single upload category accepts.
type Policy struct {
	Category          string
	MaxFileSize       int64
	AllowedMimeTypes  []string
	AllowedExtensions []string
}

var (
	imageMimeTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
	imageExts      = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

	audioMimeTypes = []string{
		"audio/mpeg",
		"audio/wav",
		"audio/flac",
		"audio/ogg",
		"application/ogg",
		"audio/x-m4a",
		"audio/mp4",
		"audio/aac",
	}
	audioExts = []string{".mp3", ".wav", ".flac", ".ogg", ".m4a", ".aac"}

	archiveMimeTypes = []string{
		"application/zip",
		"application/pdf",
		"application/x-7z-compressed",
		"application/x-rar-compressed",
		"application/gzip",
	}
	archiveExts = []string{".zip", ".pdf", ".7z", ".rar", ".gz"}
)

// ImagePolicy accepts raster images up to maxBytes.
func ImagePolicy(maxBytes int64) Policy {
	return Policy{
		Category:          config.CategoryImage,
		MaxFileSize:       maxBytes,
		AllowedMimeTypes:  imageMimeTypes,
		AllowedExtensions: imageExts,
	}
}

// AudioPolicy accepts the audio containers the transcoder can describe.
func AudioPolicy(maxBytes int64) Policy {
	return Policy{
		Category:          config.CategoryAudio,
		MaxFileSize:       maxBytes,
		AllowedMimeTypes:  audioMimeTypes,
		AllowedExtensions: audioExts,
	}
}

// DownloadPolicy accepts archives and documents plus any audio or image.
func DownloadPolicy(maxBytes int64) Policy {
	mimes := make([]string, 0, len(archiveMimeTypes)+len(audioMimeTypes)+len(imageMimeTypes))
	mimes = append(mimes, archiveMimeTypes...)
	mimes = append(mimes, audioMimeTypes...)
	mimes = append(mimes, imageMimeTypes...)

	exts := make([]string, 0, len(archiveExts)+len(audioExts)+len(imageExts))
	exts = append(exts, archiveExts...)
	exts = append(exts, audioExts...)
	exts = append(exts, imageExts...)

	return Policy{
		Category:          config.CategoryDownload,
		MaxFileSize:       maxBytes,
		AllowedMimeTypes:  mimes,
		AllowedExtensions: exts,
	}
}

// PolicyFor returns the configured policy for a category.
func PolicyFor(cfg *config.Config, category string) (Policy, bool) {
	switch category {
	case config.CategoryImage:
		return ImagePolicy(cfg.ImageMaxBytes), true
	case config.CategoryAudio:
		return AudioPolicy(cfg.AudioMaxBytes), true
	case config.CategoryDownload:
		return DownloadPolicy(cfg.DownloadMaxBytes), true
	default:
		return Policy{}, false
	}
}

func (p Policy) allowsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range p.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
