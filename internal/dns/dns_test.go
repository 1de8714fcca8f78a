package dns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_LiteralsSkipResolution(t *testing.T) {
	ip, err := Lookup(context.Background(), "192.0.2.10")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", ip)

	ip, err = Lookup(context.Background(), "::1")
	require.NoError(t, err)
	assert.Equal(t, "::1", ip)

	ip, err = Lookup(context.Background(), "localhost")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)
}

func TestPreferIPv4(t *testing.T) {
	ip, err := preferIPv4([]string{"2001:db8::1", "198.51.100.7"})
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", ip)

	ip, err = preferIPv4([]string{"2001:db8::1"})
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", ip)

	_, err = preferIPv4(nil)
	assert.Error(t, err)
}

func TestTrimBrackets(t *testing.T) {
	assert.Equal(t, "2606:4700:4700::1111", trimBrackets("[2606:4700:4700::1111]"))
	assert.Equal(t, "1.1.1.1", trimBrackets("1.1.1.1"))
}
