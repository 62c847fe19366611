package assistant

import (
	"regexp"
	"strings"
)

// Kind is what a chat message asks for.
type Kind string

const (
	SessionSwitch Kind = "session_switch"
	GeneralQuery  Kind = "general_query"
)

// Intent is the router's classification of one message. Fragment is set
// only for SessionSwitch.
type Intent struct {
	Kind     Kind
	Fragment string
}

// Rule is one pattern in the router. Extract turns the regexp submatches
// into a session name fragment; an empty result means no match.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Extract func(m []string) string
}

// Router classifies free text with an ordered list of rules. The first
// rule that matches anywhere in the text wins.
//
// It is a best-effort front end: any text that happens to satisfy a
// pattern ("I want to switch to decaf") is treated as a switch attempt.
type Router struct {
	rules []Rule
}

// DefaultRules are the session switch phrasings, in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "load",
			Pattern: regexp.MustCompile(`(?i)load\s+(?:the\s+)?(.+?)\s+session`),
			Extract: firstGroup,
		},
		{
			Name:    "switch",
			Pattern: regexp.MustCompile(`(?i)switch\s+to\s+(.+)`),
			Extract: firstGroup,
		},
		{
			Name:    "open",
			Pattern: regexp.MustCompile(`(?i)open\s+(.+?)\s+session`),
			Extract: firstGroup,
		},
	}
}

func NewRouter(rules ...Rule) *Router {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Router{rules: rules}
}

// Append adds rules after the existing ones.
func (r *Router) Append(rules ...Rule) {
	r.rules = append(r.rules, rules...)
}

func (r *Router) Classify(text string) Intent {
	for _, rule := range r.rules {
		m := rule.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if frag := rule.Extract(m); frag != "" {
			return Intent{Kind: SessionSwitch, Fragment: frag}
		}
	}
	return Intent{Kind: GeneralQuery}
}

var (
	leadingThe      = regexp.MustCompile(`(?i)^the\s+`)
	trailingSession = regexp.MustCompile(`(?i)\s+session$`)
)

func firstGroup(m []string) string {
	if len(m) < 2 {
		return ""
	}
	return cleanFragment(m[1])
}

// cleanFragment trims quotes, trailing punctuation, a leading "the" and a
// trailing "session" from a captured name.
func cleanFragment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".!?,;: ")
	s = strings.Trim(s, `"'`+"`")
	s = leadingThe.ReplaceAllString(s, "")
	s = trailingSession.ReplaceAllString(s, "")
	return strings.TrimSpace(strings.Trim(s, `"'`+"`"))
}
