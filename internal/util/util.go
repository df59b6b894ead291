package util

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// GenerateName returns prefix followed by n random lowercase hex characters.
func GenerateName(prefix string, n int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n <= 0 || n > len(id) {
		n = len(id)
	}
	return prefix + id[:n]
}

// ConvertBytesToMB converts bytes to megabytes safely
func ConvertBytesToMB(bytes int64) int64 {
	return bytes / (1024 * 1024)
}

// BytesToGB converts a value in bytes to gigabytes (GB).
func BytesToGB[T ~int | ~int64 | ~float64](bytes T) int {
	return int(math.Round(float64(bytes) / 1024.0 / 1024.0 / 1024.0))
}

