// Package media decides whether an uploaded file is something the transcription
// pipeline accepts, first by file extension against the configured audio and video
// sets and then, when content is available, by sniffing its MIME type.
package media
