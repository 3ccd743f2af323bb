package media

// Kind is the media family of a file.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Report describes an inspected upload.
type Report struct {
	FileName    string `json:"fileName"`
	Extension   string `json:"extension"`
	Kind        Kind   `json:"kind"`
	ContentType string `json:"contentType,omitempty"`
	// Sniffed is false when the content could not be identified; the extension
	// alone decided.
	Sniffed bool `json:"sniffed"`
}

// Classifier describes the behaviour required from an upload classifier.
type Classifier interface {
	Classify(fileName string) (Kind, error)
}
