package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-press/inkwell/store"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{
			name: "identical strings",
			a:    "golang",
			b:    "golang",
			want: 100,
		},
		{
			name: "case insensitive",
			a:    "JavaScript",
			b:    "javascript",
			want: 100,
		},
		{
			name: "punctuation stripped",
			a:    "Java Script",
			b:    "JavaScript",
			want: 100,
		},
		{
			name: "containment and prefix push over the cap",
			a:    "React",
			b:    "React.js",
			want: 100,
		},
		{
			name: "short prefix of long",
			a:    "Go",
			b:    "Golang",
			want: 63.33,
		},
		{
			name: "unrelated names",
			a:    "Rust",
			b:    "Python",
			want: 0,
		},
		{
			name: "transposed letters",
			a:    "tag",
			b:    "gat",
			want: 33.33,
		},
		{
			name: "one side empty after normalization",
			a:    "!!!",
			b:    "golang",
			want: 0,
		},
		{
			name: "both sides empty after normalization",
			a:    "!!!",
			b:    "???",
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.a, tt.b), 0.001)
		})
	}
}

func TestScoreSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"JavaScript", "Java"},
		{"React", "React.js"},
		{"Go", "Golang"},
		{"machine learning", "machinelearning"},
		{"tag", "gat"},
	}
	for _, p := range pairs {
		assert.Equal(t, Score(p[0], p[1]), Score(p[1], p[0]), "score(%q,%q) must be symmetric", p[0], p[1])
	}
}

func TestScoreRange(t *testing.T) {
	inputs := []string{"", "a", "Tag", "JavaScript", "完全に別の名前", "a very long tag name indeed", "!!!"}
	for _, a := range inputs {
		for _, b := range inputs {
			s := Score(a, b)
			assert.GreaterOrEqual(t, s, 0.0, "score(%q,%q)", a, b)
			assert.LessOrEqual(t, s, 100.0, "score(%q,%q)", a, b)
		}
	}
}

func TestScoreIdentity(t *testing.T) {
	for _, a := range []string{"a", "Tag", "JavaScript", "日本語"} {
		assert.Equal(t, 100.0, Score(a, a))
	}
}

func TestNormalizeTagName(t *testing.T) {
	assert.Equal(t, "javascript", normalizeTagName("Java Script!"))
	assert.Equal(t, "c11", normalizeTagName("C++ 11"))
	assert.Equal(t, "日本語", normalizeTagName(" 日本語 "))
	assert.Equal(t, "", normalizeTagName("!!! ???"))
}

func TestRankSimilar(t *testing.T) {
	tags := []*store.Tag{
		{ID: 1, Name: "Python"},
		{ID: 2, Name: "JavaScript"},
		{ID: 3, Name: "Java"},
		{ID: 4, Name: "TypeScript"},
	}

	scored := rankSimilar("Java Script", tags, 10)
	require.NotEmpty(t, scored)
	assert.Equal(t, int32(2), scored[0].tag.ID)
	assert.Equal(t, 100.0, scored[0].score)
	for i := 1; i < len(scored); i++ {
		assert.LessOrEqual(t, scored[i].score, scored[i-1].score, "results must be sorted descending")
	}
	for _, sc := range scored {
		assert.Greater(t, sc.score, RetainThreshold)
	}
}

func TestRankSimilarLimit(t *testing.T) {
	tags := []*store.Tag{
		{ID: 1, Name: "tagging"},
		{ID: 2, Name: "tagger"},
		{ID: 3, Name: "tagged"},
	}
	scored := rankSimilar("tag", tags, 2)
	assert.Len(t, scored, 2)
}

func TestRankSimilarDropsWeakMatches(t *testing.T) {
	tags := []*store.Tag{
		{ID: 1, Name: "completely unrelated"},
	}
	assert.Empty(t, rankSimilar("Go", tags, 5))
}
