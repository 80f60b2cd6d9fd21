// Package utils provides utility functions.
package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ExpandPath expands tilde and all environment variables from the given path.
func ExpandPath(path string) string {
	s, err := homedir.Expand(path)
	if err == nil {
		return os.ExpandEnv(s)
	}
	return os.ExpandEnv(path)
}

// AudioExtension returns a file extension for an audio MIME type.
func AudioExtension(mimeType string) string {
	mt, _, _ := strings.Cut(strings.ToLower(mimeType), ";")
	switch strings.TrimSpace(mt) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/pcm", "audio/l16":
		return ".pcm"
	case "audio/ogg", "audio/opus":
		return ".ogg"
	default:
		return ".mp3"
	}
}

// OutputPath adds the extension for mimeType to path when it has none.
func OutputPath(path, mimeType string) string {
	path = ExpandPath(path)
	if filepath.Ext(path) != "" {
		return path
	}
	return path + AudioExtension(mimeType)
}
