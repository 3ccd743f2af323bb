package media

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/eugenenazirov/whisperx-api/internal/config"
)

const genericBinary = "application/octet-stream"

// ExtensionClassifier accepts files by extension using the whisper settings.
type ExtensionClassifier struct {
	audio  config.ExtensionSet
	video  config.ExtensionSet
	logger *zap.Logger
}

// New builds a classifier over the audio and video extension sets.
func New(w config.WhisperSettings, logger *zap.Logger) *ExtensionClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtensionClassifier{
		audio:  w.AudioExtensions,
		video:  w.VideoExtensions,
		logger: logger.Named("media"),
	}
}

// Allowed returns the combined extension set.
func (c *ExtensionClassifier) Allowed() config.ExtensionSet {
	return config.UnionExtensions(c.audio, c.video)
}

// Classify maps a file name onto its media kind. Audio wins when an extension is
// listed in both sets.
func (c *ExtensionClassifier) Classify(fileName string) (Kind, error) {
	name := strings.TrimSpace(fileName)
	if name == "" {
		return "", ErrMissingFileName
	}
	ext := filepath.Ext(name)
	switch {
	case ext == "":
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedExtension, name)
	case c.audio.Contains(ext):
		return KindAudio, nil
	case c.video.Contains(ext):
		return KindVideo, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedExtension, strings.ToLower(ext))
}

// Inspect classifies fileName and sniffs the start of r. Content that cannot be
// identified is accepted on the strength of its extension; content identified as
// something other than audio or video is rejected.
func (c *ExtensionClassifier) Inspect(fileName string, r io.Reader) (Report, error) {
	kind, err := c.Classify(fileName)
	if err != nil {
		return Report{}, err
	}
	report := Report{
		FileName:  fileName,
		Extension: strings.ToLower(filepath.Ext(fileName)),
		Kind:      kind,
	}
	if r == nil {
		return report, nil
	}

	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return Report{}, fmt.Errorf("sniff content: %w", err)
	}
	report.ContentType = mtype.String()
	if mtype.Is(genericBinary) {
		return report, nil
	}
	report.Sniffed = true

	sniffed, ok := kindOf(mtype)
	if !ok {
		return report, fmt.Errorf("%w: detected %s", ErrUnsupportedContent, mtype.String())
	}
	if sniffed != kind {
		c.logger.Warn("content does not match extension",
			zap.String("file", fileName),
			zap.String("extension_kind", string(kind)),
			zap.String("content_type", mtype.String()),
		)
	}
	return report, nil
}

// kindOf walks the MIME hierarchy looking for an audio or video family.
func kindOf(mtype *mimetype.MIME) (Kind, bool) {
	for m := mtype; m != nil; m = m.Parent() {
		s := m.String()
		switch {
		case strings.HasPrefix(s, "audio/"):
			return KindAudio, true
		case strings.HasPrefix(s, "video/"):
			return KindVideo, true
		case s == "application/ogg":
			return KindAudio, true
		}
	}
	return "", false
}
