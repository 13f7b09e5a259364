// Package slug builds URL-safe identifiers from pharmacy names.
package slug

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxLen          = 60
	fallback        = "pharmacy"
	numberedTries   = 10 // base, base-2 ... base-10
	randomizedTries = 5
)

// ErrSlugExhausted is returned when every candidate slug is already taken.
var ErrSlugExhausted = errors.New("no unique slug available")

// ExistsFunc reports whether a slug is already in use.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Make converts name to a lower-case, dash-separated ASCII slug.
func Make(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}

	s := strings.TrimRight(b.String(), "-")
	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	if s == "" {
		return fallback
	}
	return s
}

// Unique returns a slug for name that exists reports as free. It tries the
// plain slug, then numbered suffixes, then random suffixes.
func Unique(ctx context.Context, name string, exists ExistsFunc) (string, error) {
	base := Make(name)

	for i := 1; i <= numberedTries; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	for i := 0; i < randomizedTries; i++ {
		suffix, err := randomSuffix()
		if err != nil {
			return "", err
		}
		candidate := base + "-" + suffix
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w for %q", ErrSlugExhausted, name)
}

func randomSuffix() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random suffix: %w", err)
	}
	return hex.EncodeToString(b), nil
}
