package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintOrderIndependent(t *testing.T) {
	var a, b Fingerprint
	a.ComputeContentHash([]string{HashBytes([]byte("one")), HashBytes([]byte("two"))})
	b.ComputeContentHash([]string{HashBytes([]byte("two")), HashBytes([]byte("one"))})
	a.ConfigHash, b.ConfigHash = "cfg", "cfg"
	a.ComputeRenderHash()
	b.ComputeRenderHash()
	assert.Equal(t, a.RenderHash, b.RenderHash)

	b.ConfigHash = "other"
	b.ComputeRenderHash()
	assert.NotEqual(t, a.RenderHash, b.RenderHash)
}
