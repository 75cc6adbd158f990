// Package classify holds the pure content checks the moderation pipeline
// runs on admitted messages. Nothing here does I/O or fails.
package classify

import (
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/provnuk88/Web3bot/resources"
)

// Link patterns: bare URLs, www hosts, platform deep links, bare-domain
// mentions. The first match wins.
var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://\S+`),
	regexp.MustCompile(`(?i)www\.\S+`),
	regexp.MustCompile(`(?i)t\.me/\S+`),
	regexp.MustCompile(`(?i)@[a-zA-Z0-9_]+\.(?:com|org|net|io|co|ru|tv|me|bot)`),
}

type Classifier struct {
	blacklist []string
}

// NewClassifier builds a classifier over the given blacklist; words are
// matched case-insensitively as substrings.
func NewClassifier(words []string) *Classifier {
	blacklist := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			blacklist = append(blacklist, w)
		}
	}
	return &Classifier{blacklist: blacklist}
}

// DefaultBlacklist reads the embedded blacklist resource. A broken resource
// yields an empty list, which disables profanity matching rather than
// failing startup.
func DefaultBlacklist() []string {
	raw, err := resources.FS.ReadFile("blacklist.yml")
	if err != nil {
		log.WithError(err).Error("cant read embedded blacklist")
		return nil
	}
	var parsed struct {
		Words []string `yaml:"words"`
	}
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		log.WithError(err).Error("cant unmarshal embedded blacklist")
		return nil
	}
	return parsed.Words
}

// IsProhibited reports whether text contains any blacklisted word.
func (c *Classifier) IsProhibited(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range c.blacklist {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// HasLink reports whether text matches any of the link patterns.
func HasLink(text string) bool {
	for _, pattern := range linkPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// WordCount counts whitespace-separated tokens; the points accrual
// threshold is expressed in these.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
