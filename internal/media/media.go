// Package media resolves question media file names to URLs a client can load.
package media

import (
	"path"
	"strings"
)

// Type tells the client which player to use.
type Type string

const (
	TypeImage   Type = "image"
	TypeVideo   Type = "video"
	TypeUnknown Type = "unknown"
)

// Origin tells where a resolved URL points.
type Origin string

const (
	OriginBundled Origin = "bundled"
	OriginStorage Origin = "storage"
)

var extensionTypes = map[string]Type{
	".jpg":  TypeImage,
	".jpeg": TypeImage,
	".png":  TypeImage,
	".gif":  TypeImage,
	".mp4":  TypeVideo,
	".mov":  TypeVideo,
	".wmv":  TypeVideo,
	".avi":  TypeVideo,
}

// TypeOf classifies a file name by extension.
func TypeOf(name string) Type {
	if t, ok := extensionTypes[strings.ToLower(path.Ext(name))]; ok {
		return t
	}
	return TypeUnknown
}

// Source is a resolved media reference.
type Source struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Type   Type   `json:"type"`
	Origin Origin `json:"origin"`
}
