// Package extract recognizes video clip links embedded in free-form chat text.
// It is pure: no state is carried between calls and extraction never fails;
// a message without links yields an empty result.
package extract

import (
	"regexp"
	"strings"
)

// Platform identifies the video host a clip link points at.
type Platform string

const (
	PlatformYouTube    Platform = "youtube"
	PlatformTwitch     Platform = "twitch"
	PlatformKick       Platform = "kick"
	PlatformStreamable Platform = "streamable"
)

// Match is one recognized clip link. URL is the canonical form used as the
// dedup key downstream: YouTube links are rebuilt from the video id (dropping
// tracking params); other platforms keep the matched literal.
type Match struct {
	URL      string
	Platform Platform
}

type pattern struct {
	re       *regexp.Regexp
	platform Platform
	// canonical rebuilds the dedup URL from the regexp submatches. When nil
	// the whole match is kept verbatim.
	canonical func(m []string) string
}

// Patterns are tried in a fixed order per token; a token reports at most one
// match per platform family.
var patterns = []pattern{
	{
		re:       regexp.MustCompile(`(?i)https?://(?:www\.)?(youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]+)(?:[?&]\S*)?`),
		platform: PlatformYouTube,
		canonical: func(m []string) string {
			return "https://www.youtube.com/watch?v=" + m[2]
		},
	},
	{
		re:       regexp.MustCompile(`(?i)https?://(?:www\.)?twitch\.tv/\w+/clip/([a-zA-Z0-9_-]+)`),
		platform: PlatformTwitch,
	},
	{
		re:       regexp.MustCompile(`(?i)https?://(?:www\.)?kick\.com/(?:[a-zA-Z0-9-]+/)?clip/([a-zA-Z0-9-]+)`),
		platform: PlatformKick,
	},
	{
		re:       regexp.MustCompile(`(?i)https?://(?:www\.)?streamable\.com/([a-zA-Z0-9]+)`),
		platform: PlatformStreamable,
	},
}

// Extract splits content on whitespace and tests each token against the
// platform patterns. Unmatched tokens are ignored. Results preserve token
// order; duplicates inside one message are reported once per occurrence.
func Extract(content string) []Match {
	if content == "" {
		return nil
	}
	var out []Match
	for _, token := range strings.Fields(content) {
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(token)
			if m == nil {
				continue
			}
			url := m[0]
			if p.canonical != nil {
				url = p.canonical(m)
			}
			out = append(out, Match{URL: url, Platform: p.platform})
		}
	}
	return out
}
