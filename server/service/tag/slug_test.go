package tag

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "basic",
			text: "Hello, World!",
			want: "hello-world",
		},
		{
			name: "whitespace collapsed",
			text: "  Multiple   Spaces  ",
			want: "multiple-spaces",
		},
		{
			name: "symbols dropped",
			text: "Café & Restaurant",
			want: "café-restaurant",
		},
		{
			name: "existing hyphens collapsed and trimmed",
			text: "--Already-Slugged--",
			want: "already-slugged",
		},
		{
			name: "punctuation only",
			text: "+++",
			want: "",
		},
		{
			name: "non latin letters kept",
			text: "日本語 タグ",
			want: "日本語-タグ",
		},
		{
			name: "digits kept",
			text: "Top 10 Posts",
			want: "top-10-posts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSlug(tt.text))
		})
	}
}

// mapExists builds an ExistsFunc over a slug -> tag id table.
func mapExists(taken map[string]int32) ExistsFunc {
	return func(_ context.Context, slug string, excludeID *int32) (bool, error) {
		id, ok := taken[slug]
		if !ok {
			return false, nil
		}
		if excludeID != nil && id == *excludeID {
			return false, nil
		}
		return true, nil
	}
}

func TestGenerateUniqueSlug(t *testing.T) {
	ctx := context.Background()

	t.Run("free slug is returned unchanged", func(t *testing.T) {
		slug, err := GenerateUniqueSlug(ctx, "My Tag", mapExists(map[string]int32{}), nil)
		require.NoError(t, err)
		assert.Equal(t, "my-tag", slug)
	})

	t.Run("collision appends counter suffix", func(t *testing.T) {
		slug, err := GenerateUniqueSlug(ctx, "My Tag", mapExists(map[string]int32{"my-tag": 1}), nil)
		require.NoError(t, err)
		assert.Equal(t, "my-tag-2", slug)
	})

	t.Run("counter advances past taken suffixes", func(t *testing.T) {
		taken := map[string]int32{"my-tag": 1, "my-tag-2": 2, "my-tag-3": 3}
		slug, err := GenerateUniqueSlug(ctx, "My Tag", mapExists(taken), nil)
		require.NoError(t, err)
		assert.Equal(t, "my-tag-4", slug)
	})

	t.Run("exclude id skips own row", func(t *testing.T) {
		id := int32(7)
		slug, err := GenerateUniqueSlug(ctx, "My Tag", mapExists(map[string]int32{"my-tag": 7}), &id)
		require.NoError(t, err)
		assert.Equal(t, "my-tag", slug)
	})

	t.Run("empty normalization falls back to random slug", func(t *testing.T) {
		slug, err := GenerateUniqueSlug(ctx, "+++", mapExists(map[string]int32{}), nil)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(slug, "tag-"), "got %q", slug)
		assert.Len(t, slug, len("tag-")+8)
	})

	t.Run("counter exhaustion falls back to random suffix", func(t *testing.T) {
		taken := map[string]int32{"my-tag": 1}
		for i := 2; i <= maxSlugProbes; i++ {
			taken["my-tag-"+strconv.Itoa(i)] = int32(i)
		}
		slug, err := GenerateUniqueSlug(ctx, "My Tag", mapExists(taken), nil)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(slug, "my-tag-"), "got %q", slug)
		assert.NotContains(t, taken, slug)
	})
}
