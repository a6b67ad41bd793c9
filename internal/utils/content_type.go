package utils

import (
	"path/filepath"
	"strings"
)

const DefaultContentType = "application/octet-stream"

const charsetUTF8 = "; charset=utf-8"

// text-like types are served with an explicit utf-8 charset
var textContentTypes = map[string]string{
	".txt":        "text/plain",
	".text":       "text/plain",
	".log":        "text/plain",
	".csv":        "text/csv",
	".tsv":        "text/tab-separated-values",
	".md":         "text/markdown",
	".markdown":   "text/markdown",
	".rst":        "text/x-rst",
	".html":       "text/html",
	".htm":        "text/html",
	".css":        "text/css",
	".xml":        "application/xml",
	".svg":        "image/svg+xml",
	".json":       "application/json",
	".jsonl":      "application/x-ndjson",
	".ndjson":     "application/x-ndjson",
	".yaml":       "application/yaml",
	".yml":        "application/yaml",
	".toml":       "application/toml",
	".ini":        "text/plain",
	".cfg":        "text/plain",
	".conf":       "text/plain",
	".env":        "text/plain",
	".js":         "text/javascript",
	".mjs":        "text/javascript",
	".cjs":        "text/javascript",
	".ts":         "text/typescript",
	".tsx":        "text/typescript",
	".jsx":        "text/javascript",
	".py":         "text/x-python",
	".go":         "text/x-go",
	".rs":         "text/x-rust",
	".java":       "text/x-java",
	".c":          "text/x-c",
	".h":          "text/x-c",
	".cpp":        "text/x-c++",
	".hpp":        "text/x-c++",
	".rb":         "text/x-ruby",
	".sh":         "application/x-sh",
	".bash":       "application/x-sh",
	".sql":        "application/sql",
	".ipynb":      "application/x-ipynb+json",
	".dockerfile": "text/plain",
}

var binaryContentTypes = map[string]string{
	".png":     "image/png",
	".jpg":     "image/jpeg",
	".jpeg":    "image/jpeg",
	".gif":     "image/gif",
	".webp":    "image/webp",
	".ico":     "image/x-icon",
	".bmp":     "image/bmp",
	".tif":     "image/tiff",
	".tiff":    "image/tiff",
	".pdf":     "application/pdf",
	".zip":     "application/zip",
	".gz":      "application/gzip",
	".tgz":     "application/gzip",
	".tar":     "application/x-tar",
	".bz2":     "application/x-bzip2",
	".xz":      "application/x-xz",
	".7z":      "application/x-7z-compressed",
	".mp3":     "audio/mpeg",
	".wav":     "audio/wav",
	".ogg":     "audio/ogg",
	".mp4":     "video/mp4",
	".webm":    "video/webm",
	".mov":     "video/quicktime",
	".woff":    "font/woff",
	".woff2":   "font/woff2",
	".ttf":     "font/ttf",
	".otf":     "font/otf",
	".wasm":    "application/wasm",
	".parquet": "application/vnd.apache.parquet",
	".xlsx":    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".docx":    "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx":    "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// DetectContentType maps a file name to a MIME type using a fixed extension table.
// The table is independent of the host's mime database so results are stable across machines.
func DetectContentType(key string) string {
	ext := strings.ToLower(filepath.Ext(key))
	if ext == "" {
		return DefaultContentType
	}
	if mimeType, ok := textContentTypes[ext]; ok {
		return mimeType + charsetUTF8
	}
	if mimeType, ok := binaryContentTypes[ext]; ok {
		return mimeType
	}
	return DefaultContentType
}
