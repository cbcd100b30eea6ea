package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePrefix(t *testing.T) {
	testCases := map[string]string{
		"":            "",
		"  ":          "",
		"/":           "",
		"sar":         "sar/",
		"/sar/":       "sar/",
		"exports/sar": "exports/sar/",
	}
	for in, want := range testCases {
		assert.Equal(t, want, normalizePrefix(in), "prefix %q", in)
	}
}

func TestEntryName(t *testing.T) {
	testCases := []struct {
		prefix string
		key    string
		name   string
		ok     bool
	}{
		{"", "scene.tif", "scene.tif", true},
		{"sar/", "sar/scene.tif", "scene.tif", true},
		{"sar/", "sar/", "", false},
		{"sar/", "sar/nested/scene.tif", "", false},
	}
	for _, tc := range testCases {
		name, ok := entryName(tc.prefix, tc.key)
		assert.Equal(t, tc.ok, ok, tc.key)
		assert.Equal(t, tc.name, name, tc.key)
	}
}
