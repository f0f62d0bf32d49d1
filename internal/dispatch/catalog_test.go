// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalogParsesEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	yamlDoc := `
- name: fast
  scale: "720p"
  codec: h264
  preset: veryfast
  quality: 28
  thread_caps: 2
  extras:
    tune: film
- name: slow
  scale: "1080p"
  codec: h265
  preset: slow
  quality: 20
  thread_caps: 8
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0644))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	fast, ok := catalog["fast"]
	require.True(t, ok)
	assert.Equal(t, "720p", fast.Scale)
	assert.Equal(t, "h264", fast.Codec)
	assert.Equal(t, "veryfast", fast.Preset)
	assert.Equal(t, 28, fast.Quality)
	assert.Equal(t, 2, fast.ThreadCaps)
	assert.Equal(t, "film", fast.Extras["tune"])

	slow, ok := catalog["slow"]
	require.True(t, ok)
	assert.Equal(t, 8, slow.ThreadCaps)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadCatalogInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0644))

	_, err := LoadCatalog(path)
	assert.Error(t, err)
}
