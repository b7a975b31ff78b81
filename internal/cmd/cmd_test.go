package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	t.Parallel()

	params, err := parseParams([]string{"target=prod", "flag=", "path=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"target": "prod", "flag": "", "path": "a=b"}, params)

	params, err = parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)

	_, err = parseParams([]string{"noequals"})
	assert.Error(t, err)

	_, err = parseParams([]string{"=value"})
	assert.Error(t, err)
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "design_document", slugify("Design Document"))
	assert.Equal(t, "api_v2_docs", slugify("API v2 Docs!"))
	assert.Equal(t, "plain", slugify("plain"))
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	cmd := Version()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)
	assert.NotEmpty(t, out.String())
}
