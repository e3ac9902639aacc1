package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "Mouse_metadata.csv"), c.MetadataPath)
	assert.Equal(t, "markdown", c.Format)
	assert.Equal(t, 1, c.SheetIndex)
	assert.Equal(t, []string{"Capomulin", "Ramicane", "Infubinol", "Ceftamin"}, c.OutlierRegimens)
	assert.Equal(t, "Capomulin", c.FocusRegimen)
	assert.Equal(t, "l509", c.FocusSubject)
	assert.Equal(t, 1024, c.ChartWidth)
	assert.Equal(t, 640, c.ChartHeight)
}

func TestSaveThenLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	require.NoError(t, err)
	c.FocusSubject = "s185"
	c.Delimiter = ";"
	require.NoError(t, Save(c, ""))

	_, err = os.Stat(filepath.Join(home, ".tumorstat", "config.yaml"))
	require.NoError(t, err)

	got, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "s185", got.FocusSubject)
	assert.Equal(t, ";", got.Delimiter)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("focus_regimen: Ramicane\nchart_width: 800\n"), 0o644))
	t.Setenv("TUMORSTAT_FOCUS_REGIMEN", "Infubinol")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Infubinol", c.FocusRegimen)
	assert.Equal(t, 800, c.ChartWidth)
}

func TestValidate(t *testing.T) {
	base := Global{Format: "markdown", SheetIndex: 1, ChartWidth: 10, ChartHeight: 10}
	require.NoError(t, base.Validate())
	for _, f := range []string{"md", "json"} {
		g := base
		g.Format = f
		assert.NoError(t, g.Validate(), f)
	}

	tests := []struct {
		name string
		mut  func(*Global)
	}{
		{"format", func(g *Global) { g.Format = "html" }},
		{"delimiter", func(g *Global) { g.Delimiter = ";;" }},
		{"sheet", func(g *Global) { g.SheetIndex = 0 }},
		{"size", func(g *Global) { g.ChartHeight = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := base
			tt.mut(&g)
			assert.Error(t, g.Validate())
		})
	}
}

func TestLoad_FormatAliasFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TUMORSTAT_FORMAT", "md")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "md", c.Format)
}
