package model

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// AssetKind discriminates the three shapes an avatar/logo/gallery asset takes.
type AssetKind string

const (
	// AssetText is inline text (including emoji) rendered as-is.
	AssetText AssetKind = "text"
	// AssetRemote is a URL to an externally hosted image.
	AssetRemote AssetKind = "remote"
	// AssetImage is embedded binary image data.
	AssetImage AssetKind = "image"
)

// Asset is a tagged union: exactly one payload is meaningful per kind.
// Text holds the inline text or remote URL; Data and MIME are set only for
// AssetImage.
type Asset struct {
	Kind AssetKind `json:"kind"`
	Text string    `json:"text,omitempty"`
	Data []byte    `json:"data,omitempty"`
	MIME string    `json:"mime,omitempty"`
}

const dataURIPrefix = "data:image/"

// ParseAsset classifies a raw string into an asset. A base64 image data URI
// is decoded to binary with the MIME type sniffed from the byte signature; a
// decode failure falls back to plain text with the raw string preserved.
// This never fails: unrecognized input is inline text.
func ParseAsset(value string) Asset {
	if value == "" {
		return Asset{Kind: AssetText}
	}
	if strings.HasPrefix(value, dataURIPrefix) {
		if i := strings.Index(value, ";base64,"); i > 0 {
			raw, err := base64.StdEncoding.DecodeString(value[i+len(";base64,"):])
			if err == nil {
				return Asset{Kind: AssetImage, Data: raw, MIME: http.DetectContentType(raw)}
			}
		}
		return Asset{Kind: AssetText, Text: value}
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return Asset{Kind: AssetRemote, Text: value}
	}
	return Asset{Kind: AssetText, Text: value}
}

// String renders the asset in its external representation: passthrough for
// text and remote URLs, a base64 data URI for embedded images.
func (a Asset) String() string {
	if a.Kind != AssetImage {
		return a.Text
	}
	return "data:" + a.MIME + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}
