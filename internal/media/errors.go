package media

import "errors"

var (
	// ErrMissingFileName is returned when no file name is supplied.
	ErrMissingFileName = errors.New("file name is required")
	// ErrUnsupportedExtension is returned when the extension is in neither the audio nor the video set.
	ErrUnsupportedExtension = errors.New("file extension is not allowed")
	// ErrUnsupportedContent is returned when the sniffed content is not audio or video.
	ErrUnsupportedContent = errors.New("file content is not audio or video")
)
