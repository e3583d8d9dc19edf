// Package sanitize strips links to disallowed sites from model output and finds links
// that are not on the official allow-list.
package sanitize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/kailas-cloud/regassist/internal/domain"
)

// DefaultForbiddenDomains are paywalled or non-authoritative sites never cited to users.
var DefaultForbiddenDomains = []string{
	"weblex.fr", "village-justice.com", "editions-tissot.fr", "dalloz.fr",
	"juritravail.com", "legalplace.fr", "captaincontrat.com", "wikipedia.org",
}

// DefaultOfficialDomains are the trusted publishers; links elsewhere are recorded for review.
var DefaultOfficialDomains = []string{
	"legifrance.gouv.fr", "eur-lex.europa.eu", "service-public.fr", "transports.gouv.fr",
	"ecologie.gouv.fr", "urssaf.fr", "gouv.fr", "europa.eu",
}

var (
	markdownLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	bareURL      = regexp.MustCompile(`https?://[^\s()\[\]<>]+`)
	emptyParens  = regexp.MustCompile(`\s*\(\s*\)`)
	spaceRuns    = regexp.MustCompile(`[ \t]{2,}`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

// Sanitizer is safe for concurrent use.
type Sanitizer struct {
	forbidden    []string
	official     []string
	parenMention *regexp.Regexp
}

// New compiles a sanitizer for the given deny and allow lists.
func New(forbidden, official []string) *Sanitizer {
	s := &Sanitizer{
		forbidden: normalizeDomains(forbidden),
		official:  normalizeDomains(official),
	}
	if len(s.forbidden) > 0 {
		quoted := make([]string, len(s.forbidden))
		for i, d := range s.forbidden {
			quoted[i] = regexp.QuoteMeta(d)
		}
		s.parenMention = regexp.MustCompile(
			`(?i)\(\s*(?:https?://)?(?:[a-z0-9-]+\.)*(?:` + strings.Join(quoted, "|") + `)[^()\s]*\s*\)`)
	}
	return s
}

// Default returns a sanitizer over the stock domain lists.
func Default() *Sanitizer { return New(DefaultForbiddenDomains, DefaultOfficialDomains) }

// Clean removes forbidden links and mentions, then tidies leftovers.
// Removal repeats until nothing changes, since dropping empty parentheses can join text into
// a new forbidden mention. Whitespace is collapsed last. Clean is idempotent.
func (s *Sanitizer) Clean(raw string) string {
	out := raw
	for {
		next := s.strip(out)
		if next == out {
			break
		}
		out = next
	}
	out = spaceRuns.ReplaceAllString(out, " ")
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// strip runs one pass of every removal rule.
func (s *Sanitizer) strip(in string) string {
	out := markdownLink.ReplaceAllStringFunc(in, func(m string) string {
		sub := markdownLink.FindStringSubmatch(m)
		if s.isForbidden(sub[2]) {
			return ""
		}
		return m
	})
	if s.parenMention != nil {
		out = s.parenMention.ReplaceAllString(out, "")
	}
	out = bareURL.ReplaceAllStringFunc(out, func(m string) string {
		if s.isForbidden(m) {
			return ""
		}
		return m
	})
	return emptyParens.ReplaceAllString(out, "")
}

// NonOfficialLinks returns the http(s) markdown links of text whose host is not on the allow-list,
// deduplicated by URL in order of appearance.
func (s *Sanitizer) NonOfficialLinks(text string) []domain.DetectedLink {
	var links []domain.DetectedLink
	seen := make(map[string]struct{})
	for _, m := range markdownLink.FindAllStringSubmatch(text, -1) {
		title, link := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if !strings.HasPrefix(link, "http") {
			continue
		}
		if matchesAny(link, s.official) {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, domain.DetectedLink{Title: title, URL: link})
	}
	return links
}

// IsOfficial reports whether link belongs to an allow-listed domain.
func (s *Sanitizer) IsOfficial(link string) bool { return matchesAny(link, s.official) }

func (s *Sanitizer) isForbidden(link string) bool { return matchesAny(link, s.forbidden) }

// matchesAny compares the URL host against domains, subdomains included.
// Strings without a parsable host fall back to a substring check.
func matchesAny(link string, domains []string) bool {
	host := hostOf(link)
	lowered := strings.ToLower(link)
	for _, d := range domains {
		if host != "" {
			if host == d || strings.HasSuffix(host, "."+d) {
				return true
			}
			continue
		}
		if strings.Contains(lowered, d) {
			return true
		}
	}
	return false
}

func hostOf(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
