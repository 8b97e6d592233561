package requests

import (
	"jan-server/services/media-storage/internal/domain/media"
)

// ImageUploadForm carries the multipart fields sent with an image upload.
type ImageUploadForm struct {
	Alt       string `form:"alt"`
	Folder    string `form:"folder"`
	GalleryID string `form:"galleryId"`
	MaxWidth  int    `form:"maxWidth" binding:"omitempty,min=1,max=10000"`
	MaxHeight int    `form:"maxHeight" binding:"omitempty,min=1,max=10000"`
	Quality   int    `form:"quality" binding:"omitempty,min=1,max=100"`
}

// ToDomain converts the form to upload options.
func (f *ImageUploadForm) ToDomain() media.ImageUploadOptions {
	return media.ImageUploadOptions{
		Folder:    f.Folder,
		GalleryID: f.GalleryID,
		Alt:       f.Alt,
		MaxWidth:  f.MaxWidth,
		MaxHeight: f.MaxHeight,
		Quality:   f.Quality,
	}
}

// AudioUploadForm carries the multipart fields sent with an audio upload.
type AudioUploadForm struct {
	Folder   string `form:"folder"`
	IsPublic bool   `form:"isPublic"`
}

// ToDomain converts the form to upload options.
func (f *AudioUploadForm) ToDomain() media.AudioUploadOptions {
	return media.AudioUploadOptions{
		Folder:   f.Folder,
		IsPublic: f.IsPublic,
	}
}

// DownloadUploadForm carries the multipart fields sent with a download upload.
type DownloadUploadForm struct {
	Folder string `form:"folder"`
}

// ToDomain converts the form to upload options.
func (f *DownloadUploadForm) ToDomain() media.DownloadUploadOptions {
	return media.DownloadUploadOptions{Folder: f.Folder}
}

// PresignRequest asks for a direct-to-store upload URL.
type PresignRequest struct {
	FileType string `json:"fileType" binding:"required,oneof=image audio download"`
	Filename string `json:"filename" binding:"required"`
	MimeType string `json:"mimeType" binding:"required"`
}
