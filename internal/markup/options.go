package markup

import (
	"fmt"
	"strings"
)

// Mode selects how Rewrite treats each line.
type Mode string

const (
	ModeHighlight Mode = "highlight"
	ModeColor     Mode = "color"
	ModeBold      Mode = "bold"
	ModeItalic    Mode = "italic"
	ModeStrike    Mode = "strike"
	ModeTag       Mode = "tag"
	ModeRemove    Mode = "remove"
)

// DefaultMarkTemplate wraps colour highlights; %s receives the colour.
const DefaultMarkTemplate = `<mark style="background: %s;">`

var modes = []Mode{ModeHighlight, ModeColor, ModeBold, ModeItalic, ModeStrike, ModeTag, ModeRemove}

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, m := range modes {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown markup mode %q", s)
}

// Options is everything the rewriter needs; it carries no defaults of its
// own beyond the mark template.
type Options struct {
	Mode         Mode
	Color        string
	MarkTemplate string
	Tags         []string
	TagPrefix    string
}

func (o Options) wrap() (string, string) {
	switch o.Mode {
	case ModeHighlight:
		return "==", "=="
	case ModeColor:
		if o.Color == "" {
			return "<mark>", "</mark>"
		}
		tmpl := o.MarkTemplate
		if tmpl == "" {
			tmpl = DefaultMarkTemplate
		}
		return fmt.Sprintf(tmpl, o.Color), "</mark>"
	case ModeBold:
		return "**", "**"
	case ModeItalic:
		return "*", "*"
	case ModeStrike:
		return "~~", "~~"
	default:
		return "", ""
	}
}

// tagTokens returns the tag tokens with the prefix applied, skipping any
// already present in content.
func (o Options) tagTokens(content string) []string {
	if len(o.Tags) == 0 {
		return nil
	}
	present := make(map[string]struct{})
	for _, word := range strings.Fields(content) {
		present[word] = struct{}{}
	}
	tokens := make([]string, 0, len(o.Tags))
	for _, tag := range o.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if o.TagPrefix != "" && !strings.HasPrefix(tag, o.TagPrefix) {
			tag = o.TagPrefix + tag
		}
		if _, ok := present[tag]; ok {
			continue
		}
		present[tag] = struct{}{}
		tokens = append(tokens, tag)
	}
	return tokens
}
