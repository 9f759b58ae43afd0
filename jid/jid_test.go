package jid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullJID(t *testing.T) {
	j, err := Parse("111111@gw.example.com/ICQ")
	require.NoError(t, err)
	assert.Equal(t, "111111", j.Node())
	assert.Equal(t, "gw.example.com", j.Domain())
	assert.Equal(t, "ICQ", j.Resource())
}

func TestParseBareJID(t *testing.T) {
	j, err := Parse("user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "", j.Resource())
	assert.Equal(t, "user@example.com", j.Bare().Full())
}

func TestParseDomainOnly(t *testing.T) {
	j, err := Parse("gw.example.com")
	require.NoError(t, err)
	assert.Equal(t, "", j.Node())
	assert.False(t, j.IsEmpty())
}

func TestParseRejectsEmptyDomain(t *testing.T) {
	_, err := Parse("user@")
	assert.Error(t, err)
}

func TestBareDropsResource(t *testing.T) {
	j, _ := Parse("a@b.com/res")
	assert.Equal(t, "a@b.com", j.Bare().Full())
}
