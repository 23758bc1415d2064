// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigDir_Override(t *testing.T) {
	t.Setenv("PRIKIT_CONFIG_DIR", "/tmp/prikit-test")
	assert.Equal(t, "/tmp/prikit-test", GetConfigDir())
	assert.Equal(t, filepath.Join("/tmp/prikit-test", "config.yaml"), GetConfigFile())
}

func TestIsWithin(t *testing.T) {
	base := t.TempDir()
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"direct child", filepath.Join(base, "a.pdf"), true},
		{"nested", filepath.Join(base, "x", "b.pdf"), true},
		{"base itself", base, false},
		{"parent", filepath.Dir(base), false},
		{"traversal", filepath.Join(base, "..", "c.pdf"), false},
		{"sibling prefix", base + "-other/d.pdf", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWithin(base, tt.path))
		})
	}
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "report.docx", SafeFilename("report.docx"))
	assert.Equal(t, "passwd", SafeFilename("../../etc/passwd"))
	assert.Equal(t, "a.png", SafeFilename(`C:\Users\me\a.png`))
	assert.Equal(t, "", SafeFilename(".."))
}
