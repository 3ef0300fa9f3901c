package domain

import (
	"fmt"
	"strings"
)

// ImageType is the photo category a training set belongs to
type ImageType string

const (
	ImageTypeHero        ImageType = "hero"
	ImageTypeDetailMacro ImageType = "detail_macro"
	ImageTypeLifestyle   ImageType = "lifestyle"
)

// ImageTypes lists the categories in the order they are offered to the user
var ImageTypes = []ImageType{ImageTypeHero, ImageTypeDetailMacro, ImageTypeLifestyle}

// ParseImageType accepts the wire value or a display label, case-insensitively
func ParseImageType(s string) (ImageType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hero":
		return ImageTypeHero, nil
	case "detail_macro", "detail/macro", "detail", "macro":
		return ImageTypeDetailMacro, nil
	case "lifestyle":
		return ImageTypeLifestyle, nil
	}
	return "", fmt.Errorf("unknown image type %q", s)
}

// Label returns the human-readable name of the category
func (t ImageType) Label() string {
	switch t {
	case ImageTypeHero:
		return "Hero"
	case ImageTypeDetailMacro:
		return "Detail/Macro"
	case ImageTypeLifestyle:
		return "Lifestyle"
	}
	return string(t)
}

// Valid reports whether t is one of the canonical wire values
func (t ImageType) Valid() bool {
	for _, v := range ImageTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Image is a single uploaded training photo
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}
