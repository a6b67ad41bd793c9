package sync

import "github.com/openmined/bucketsync/internal/utils"

// DefaultContentTypeResolver resolves from the built-in extension table.
// Unknown extensions map to application/octet-stream.
func DefaultContentTypeResolver(fileName string) string {
	return utils.DetectContentType(fileName)
}
