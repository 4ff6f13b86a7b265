package build

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Fingerprint identifies the inputs of a build. Two builds with the same
// RenderHash produce the same output.
type Fingerprint struct {
	ContentHash string
	ConfigHash  string
	RenderHash  string
}

func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ComputeContentHash folds per-file hashes into ContentHash independent of
// the order they were collected in.
func (f *Fingerprint) ComputeContentHash(fileHashes []string) {
	sorted := append([]string(nil), fileHashes...)
	sort.Strings(sorted)
	h := sha256.New()
	for _, s := range sorted {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	f.ContentHash = hex.EncodeToString(h.Sum(nil))
}

func (f *Fingerprint) ComputeRenderHash() {
	h := sha256.New()
	h.Write([]byte(f.ContentHash))
	h.Write([]byte(f.ConfigHash))
	f.RenderHash = hex.EncodeToString(h.Sum(nil))
}
