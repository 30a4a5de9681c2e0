package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyHidesToken(t *testing.T) {
	key := Key("secret-token")
	assert.True(t, strings.HasPrefix(key, keyPrefix))
	assert.NotContains(t, key, "secret-token")
	assert.Len(t, key, len(keyPrefix)+64)
	assert.Equal(t, key, Key("secret-token"))
	assert.NotEqual(t, key, Key("secret-token2"))
}
