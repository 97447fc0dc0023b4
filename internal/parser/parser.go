package parser

import (
	"path/filepath"
	"strings"
)

// SupportedExtensions lists file extensions this service can handle.
// Analysis depends on page geometry, so only PDF input makes sense here.
var SupportedExtensions = map[string]bool{
	".pdf": true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}
