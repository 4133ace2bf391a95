package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		v, err := Generate(PrefixBook)
		require.NoError(t, err)
		assert.False(t, ids[v], "ID should be unique: %s", v)
		ids[v] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixAuthor, PrefixBook, PrefixUser} {
		t.Run(prefix, func(t *testing.T) {
			v, err := Generate(prefix)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(v, prefix+"-"))
			assert.Len(t, v, len(prefix)+1+nanoidLength, "ID: %s", v)

			for _, char := range strings.TrimPrefix(v, prefix+"-") {
				assert.True(t,
					(char >= 'A' && char <= 'Z') ||
						(char >= 'a' && char <= 'z') ||
						(char >= '0' && char <= '9') ||
						char == '_' || char == '-',
					"Character %c should be URL-safe", char)
			}
		})
	}
}

func TestMustGenerate_Format(t *testing.T) {
	v := MustGenerate("test")

	assert.True(t, strings.HasPrefix(v, "test-"))
	assert.Equal(t, len("test")+1+nanoidLength, len(v))
}

func TestHasPrefix(t *testing.T) {
	v := MustGenerate(PrefixAuthor)

	assert.True(t, HasPrefix(v, PrefixAuthor))
	assert.False(t, HasPrefix(v, PrefixBook))
	assert.False(t, HasPrefix("author-short", PrefixAuthor))
	assert.False(t, HasPrefix("65f1c0a9e4b0a1b2c3d4e5f6", PrefixAuthor))
}

func BenchmarkGenerate(b *testing.B) {
	for b.Loop() {
		_, _ = Generate("bench")
	}
}
