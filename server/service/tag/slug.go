package tag

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/lithammer/shortuuid/v4"
)

// maxSlugProbes bounds the counter suffix search before falling back to a
// random suffix.
const maxSlugProbes = 100

// ExistsFunc reports whether a slug is already taken by a tag other than
// excludeID.
type ExistsFunc func(ctx context.Context, slug string, excludeID *int32) (bool, error)

// GenerateSlug converts a display name into a URL-safe slug: lower-case,
// whitespace collapsed to single hyphens, characters outside letters, digits
// and the hyphen dropped, repeated hyphens collapsed, leading and trailing
// hyphens trimmed.
func GenerateSlug(text string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			pendingSep = true
		}
	}
	return b.String()
}

// GenerateUniqueSlug derives a slug from text and disambiguates collisions by
// probing the exists check with counter suffixes (slug-2, slug-3, ...) and,
// should the counter space run out, a random suffix. The result is idempotent
// for already-unique input. excludeID lets an update regenerate a tag's slug
// without colliding with itself.
func GenerateUniqueSlug(ctx context.Context, text string, exists ExistsFunc, excludeID *int32) (string, error) {
	base := GenerateSlug(text)
	if base == "" {
		base = "tag-" + randomSlugSuffix()
	}

	taken, err := exists(ctx, base, excludeID)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	for i := 2; i <= maxSlugProbes; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		taken, err := exists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return base + "-" + randomSlugSuffix(), nil
}

func randomSlugSuffix() string {
	return strings.ToLower(shortuuid.New())[:8]
}
