package main

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestRun_RequiresSecret(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-sub", "alice"}, &out)
	assert.ErrorIs(t, err, errSecretRequired)
	assert.Empty(t, out.String())
}

func TestRun_RejectsShortSecret(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run([]string{"-secret", "short"}, &out))
}

func TestRun_SignThenDecode(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-secret", testSecret, "-sub", "bob"}, &out))

	m := regexp.MustCompile(`Token: (\S+)`).FindStringSubmatch(out.String())
	require.Len(t, m, 2)

	out.Reset()
	require.NoError(t, run([]string{"-secret", testSecret, "-decode", m[1]}, &out))
	assert.Contains(t, out.String(), "Subject:  bob")
}
