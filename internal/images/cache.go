package images

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
)

// cacheKeyLen truncates the hex digest; 24 hex chars (96 bits) is
// plenty for a per-project image cache.
const cacheKeyLen = 24

// CacheKey derives the cache file name for a prompt. Model and size are
// part of the key so changing either regenerates the image.
func CacheKey(prompt, model, size string) string {
	h := sha256.Sum256([]byte(model + "\n" + size + "\n" + prompt))
	return hex.EncodeToString(h[:])[:cacheKeyLen]
}

func cachePath(dir, key string) string {
	return filepath.Join(dir, key+".png")
}

// lookupCache returns the cached image path for key, or "" on a miss.
func lookupCache(dir, key string) string {
	p := cachePath(dir, key)
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return p
	}
	return ""
}
