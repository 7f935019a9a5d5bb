package ingest

import (
	"path/filepath"
	"strings"
)

// The accepted upload surface. Anything outside this table is rejected
// before any backend traffic happens.
var mimeByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
}

// Classify maps a file name to its accepted MIME type. The second return is
// false for anything the service does not convert.
func Classify(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	mime, ok := mimeByExtension[ext]
	return mime, ok
}

// AcceptedExtensions lists the recognized file extensions, for help text.
func AcceptedExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".webp", ".pdf", ".doc", ".docx", ".mp3", ".mp4"}
}
