package command

import (
	"regexp"
	"strings"
)

// aliases maps operator shorthand to canonical tokens.
var aliases = map[string]string{
	"bo":      "blackout",
	"clr":     "clear",
	"rec":     "record",
	"upd":     "update",
	"del":     "delete",
	"fix":     "fixture",
	"fx":      "fixture",
	"through": "thru",
	"thr":     "thru",
	">":       "thru",
	"@":       "at",
	"enc":     "encoder",
	"wheel":   "encoder",
	"exec":    "executor",
	"ex":      "executor",
	"int":     "intensity",
	"pos":     "position",
	"col":     "color",
}

// modeAliases only apply to the token following "mode", so that single
// letters stay usable elsewhere.
var modeAliases = map[string]string{
	"i":  "inhibitive",
	"a":  "additive",
	"sc": "scaling",
	"su": "subtractive",
}

var (
	plusSpacing   = regexp.MustCompile(`\s*\+\s*`)
	fixtureNumber = regexp.MustCompile(`^(?:fx|fix|fixture)(\d+)$`)
)

// Normalize lower-cases the input, collapses whitespace, joins "+" sets and
// substitutes aliases token by token.
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, "@", " @ ")
	s = plusSpacing.ReplaceAllString(s, "+")

	tokens := strings.Fields(s)
	out := make([]string, 0, len(tokens)+1)
	for i, tok := range tokens {
		if i > 0 && tokens[i-1] == "mode" {
			if canonical, ok := modeAliases[tok]; ok {
				out = append(out, canonical)
				continue
			}
		}
		if canonical, ok := aliases[tok]; ok {
			out = append(out, canonical)
			continue
		}
		if m := fixtureNumber.FindStringSubmatch(tok); m != nil {
			out = append(out, "fixture", m[1])
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}
