package theme

import "strings"

// Image is a chosen piece of source art for a slot. A nil *Image is the one
// representation of an empty slot.
type Image struct {
	// Source locates the bytes: file path, http(s) URL or data URI.
	Source string `json:"source" yaml:"source"`
	// Label is a display name, optional.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// NewImage returns an Image for source, or nil when source is blank.
// Blank and missing sources are both normalised to nil here.
func NewImage(source, label string) *Image {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil
	}
	return &Image{Source: source, Label: strings.TrimSpace(label)}
}
