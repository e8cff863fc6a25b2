package handler

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveImportPath(t *testing.T) {
	root := filepath.Join("data", "workspace")

	path, ok := resolveImportPath(root, "demo", "notes/参考资料.txt")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "demo", "notes", "参考资料.txt"), path)

	// 越界与绝对路径一律拒绝
	for _, raw := range []string{
		"../other-project/secret.txt",
		"../../../../etc/passwd",
		"notes/../../escape.txt",
		"/etc/passwd",
		"..",
		"",
		"   ",
	} {
		_, ok := resolveImportPath(root, "demo", raw)
		assert.False(t, ok, "path %q must be rejected", raw)
	}
}
