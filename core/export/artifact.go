// Package export turns render results into usable outputs: blobs, data
// URLs, container content, and saved files.
//
// Every adapter goes through PrimaryArtifact, which picks one artifact out
// of the result and normalizes it to bytes.
package export

import (
	"fmt"

	"github.com/gaurav-prasanna/quillpipe/core"
	"github.com/gaurav-prasanna/quillpipe/core/bytesrc"
)

// PrimaryArtifact returns the canonical bytes of the first artifact in
// result. A list yields element 0, a map yields its "main" entry, and
// anything else is treated as the artifact itself.
func PrimaryArtifact(result *core.RenderResult) ([]byte, error) {
	var artifacts any
	if result != nil {
		artifacts = result.Artifacts
	}
	data, err := bytesrc.Normalize(primary(artifacts))
	if err != nil {
		return nil, fmt.Errorf("extracting primary artifact: %w", err)
	}
	return data, nil
}

func primary(artifacts any) any {
	switch a := artifacts.(type) {
	case []any:
		return first(a)
	case []core.Artifact:
		return first(a)
	case []*core.Artifact:
		return first(a)
	case []map[string]any:
		return first(a)
	case map[string]any:
		if main, ok := a["main"]; ok {
			return main
		}
	case map[string]core.Artifact:
		if main, ok := a["main"]; ok {
			return main
		}
	}
	return artifacts
}

// first returns element 0, or nil for an empty list.
func first[T any](list []T) any {
	if len(list) == 0 {
		return nil
	}
	return list[0]
}
