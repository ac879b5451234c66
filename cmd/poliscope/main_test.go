package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestParseLinks(t *testing.T) {
	dir := t.TempDir()
	invoicePath := filepath.Join(dir, "roof.pdf")
	require.NoError(t, os.WriteFile(invoicePath, []byte("Installation Date: 2020-06-01"), 0644))

	t.Run("valid link", func(t *testing.T) {
		links, err := parseLinks([]string{"POL-123=" + invoicePath})
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "roof.pdf", links["POL-123"].Filename)
		assert.NotEmpty(t, links["POL-123"].Data)
	})

	t.Run("no links", func(t *testing.T) {
		links, err := parseLinks(nil)
		require.NoError(t, err)
		assert.Nil(t, links)
	})

	t.Run("missing separator", func(t *testing.T) {
		_, err := parseLinks([]string{"POL-123"})
		assert.ErrorContains(t, err, "expected POLICY=PATH")
	})

	t.Run("empty policy", func(t *testing.T) {
		_, err := parseLinks([]string{"=" + invoicePath})
		assert.ErrorContains(t, err, "expected POLICY=PATH")
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := parseLinks([]string{"POL-123=" + filepath.Join(dir, "missing.pdf")})
		assert.ErrorContains(t, err, "failed to read")
	})
}

func TestSetupLogger(t *testing.T) {
	run := func(level string) error {
		app := &cli.App{
			Name: "poliscope",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level", Value: "info"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
		return app.Run([]string{"poliscope", "--log-level", level})
	}

	for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
		assert.NoError(t, run(level), level)
	}
	assert.Error(t, run("verbose"))
}
