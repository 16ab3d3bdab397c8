// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadProfile(t *testing.T) {
	tests := map[string]struct {
		content   string
		changed   []string
		want      dumpOptions
		wantLevel string
		wantErr   bool
	}{
		"Empty": {
			content: "",
			want:    dumpOptions{Jobs: 4},
		},
		"All": {
			content: `
bered = true
allow_unordered_set = true
allow_default_values = true
allow_expl_oob = true
with_paths = true
with_offsets = true
hex = true
jobs = 2
log_level = "debug"
`,
			want: dumpOptions{
				BERed: true, AllowUnorderedSet: true, AllowDefaultValues: true, AllowExplOOB: true,
				WithPaths: true, WithOffsets: true, Hex: true, Jobs: 2,
			},
			wantLevel: "debug",
		},
		"FlagsWin": {
			content: "bered = true\njobs = 8\nlog_level = \"trace\"\n",
			changed: []string{"bered", "jobs", "log-level"},
			want:    dumpOptions{Jobs: 4},
		},
		"UnknownKey": {content: "strict = true\n", wantErr: true},
		"BadJobs":    {content: "jobs = 0\n", wantErr: true},
		"Syntax":     {content: "bered = \n", wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeProfile(t, tt.content)
			opts := defaultDumpOptions()
			changed := func(flag string) bool {
				for _, c := range tt.changed {
					if c == flag {
						return true
					}
				}
				return false
			}
			level, err := loadProfile(path, &opts, changed)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, opts)
			assert.Equal(t, tt.wantLevel, level)
		})
	}
}

func TestLoadProfile_Missing(t *testing.T) {
	opts := defaultDumpOptions()
	_, err := loadProfile(filepath.Join(t.TempDir(), "missing.toml"), &opts, func(string) bool { return false })
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDumpOptions_Context(t *testing.T) {
	opts := dumpOptions{BERed: true, AllowExplOOB: true}
	ctx := opts.context(nil)
	assert.True(t, ctx.BERed)
	assert.True(t, ctx.AllowExplOOB)
	assert.False(t, ctx.AllowUnorderedSet)
	assert.Len(t, opts.prettyOptions(), 1)
}
