package bundle

import (
	"path"
	"strings"
)

// binaryExtensions are loaded as byte arrays; everything else is text.
var binaryExtensions = map[string]bool{
	// images
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".bmp": true, ".ico": true,
	// fonts
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true,
	// documents and archives
	".pdf": true, ".zip": true, ".tar": true, ".gz": true,
}

// IsBinary reports whether the file at name is loaded as bytes. The
// extension match is case-insensitive.
func IsBinary(name string) bool {
	return binaryExtensions[strings.ToLower(path.Ext(name))]
}
