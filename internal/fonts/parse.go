package fonts

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/sjc5/tessera/internal/common"
	"github.com/sjc5/tessera/internal/util"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

type declaration struct {
	name  string
	value string
}

// fontFaceRule is a raw @font-face block as declared.
type fontFaceRule struct {
	decls []declaration
}

func (r fontFaceRule) get(name string) (string, bool) {
	for _, d := range r.decls {
		if d.name == name {
			return d.value, true
		}
	}
	return "", false
}

type stylesheet struct {
	imports []string
	rules   []fontFaceRule
}

// parseStylesheet collects top-level @import targets and every @font-face
// block, including those nested in conditional group rules.
func parseStylesheet(cssText string) (stylesheet, error) {
	var sheet stylesheet
	p := css.NewParser(parse.NewInputString(cssText), false)

	var current *fontFaceRule
	depth := 0 // at-rule nesting, outside of a font-face block
	nested := 0

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if _, ok := p.Err().(*parse.Error); ok {
				continue
			}
			if p.Err() == io.EOF {
				return sheet, nil
			}
			return sheet, p.Err()

		case css.AtRuleGrammar:
			if current == nil && depth == 0 && atRuleIs(data, "import") {
				if target := extractURL(joinValues(p.Values())); target != "" {
					sheet.imports = append(sheet.imports, target)
				}
			}

		case css.BeginAtRuleGrammar:
			switch {
			case current != nil:
				nested++
			case atRuleIs(data, "font-face"):
				current = &fontFaceRule{}
			default:
				depth++
			}

		case css.EndAtRuleGrammar:
			switch {
			case current != nil && nested > 0:
				nested--
			case current != nil:
				sheet.rules = append(sheet.rules, *current)
				current = nil
			case depth > 0:
				depth--
			}

		case css.DeclarationGrammar:
			if current != nil && nested == 0 {
				current.decls = append(current.decls, declaration{
					name:  strings.ToLower(string(data)),
					value: strings.TrimSpace(joinValues(p.Values())),
				})
			}
		}
	}
}

func atRuleIs(data []byte, name string) bool {
	return strings.EqualFold(strings.TrimPrefix(string(data), "@"), name)
}

func joinValues(values []css.Token) string {
	var sb strings.Builder
	for _, v := range values {
		sb.Write(v.Data)
	}
	return sb.String()
}

var urlRegex = regexp.MustCompile(`url\(\s*([^)]+?)\s*\)`)

// extractURL returns the first url() argument of value, or value itself when
// it is a bare string (as in `@import "a.css"`).
func extractURL(value string) string {
	if match := urlRegex.FindStringSubmatch(value); match != nil {
		return unquote(match[1])
	}
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, `"`) || strings.HasPrefix(value, `'`) {
		if end := strings.IndexByte(value[1:], value[0]); end >= 0 {
			return value[1 : end+1]
		}
	}
	return ""
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func resolveURL(base, ref string) string {
	if base == "" || util.IsDataURL(ref) {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// fontFace is a validated rule: its first source file, resolved to an
// absolute URL, and the codepoints it covers.
type fontFace struct {
	rule     fontFaceRule
	url      string
	ranges   []codepointRange
	hasRange bool
}

func interpretRule(index int, rule fontFaceRule, base string) (fontFace, error) {
	src, ok := rule.get("src")
	if !ok {
		return fontFace{}, common.MappingParseError{Rule: index, Reason: "missing src"}
	}
	ref := extractURL(src)
	if ref == "" {
		return fontFace{}, common.MappingParseError{Rule: index, Reason: fmt.Sprintf("no url() in src %q", src)}
	}

	face := fontFace{rule: rule, url: resolveURL(base, ref)}
	if value, ok := rule.get("unicode-range"); ok {
		ranges, err := parseUnicodeRange(value)
		if err != nil {
			return fontFace{}, common.MappingParseError{Rule: index, Reason: err.Error()}
		}
		face.ranges = ranges
		face.hasRange = true
	}
	return face, nil
}

// css renders the face with src pointing at the given url.
func (f fontFace) css(src string) string {
	var sb strings.Builder
	sb.WriteString("@font-face{")
	for _, d := range f.rule.decls {
		sb.WriteString(d.name)
		sb.WriteByte(':')
		if d.name == "src" {
			sb.WriteString(`url("` + src + `")`)
		} else {
			sb.WriteString(d.value)
		}
		sb.WriteByte(';')
	}
	sb.WriteString("}")
	return sb.String()
}
