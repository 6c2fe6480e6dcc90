package fonts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sjc5/tessera/internal/common"
	"github.com/sjc5/tessera/internal/util"
	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
)

const maxStylesheetBytes = 4 << 20

// sourceID is the import URL itself, or a fingerprint of inline text.
func sourceID(src common.StyleSource) string {
	if src.ImportURL != "" {
		return src.ImportURL
	}
	return util.GetFingerprint([]byte(src.Inline), "inline_")
}

func fetchText(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStylesheetBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// loadFaces parses cssText and the stylesheets it imports, one level deep,
// into validated faces. Invalid rules are logged and skipped.
func loadFaces(ctx context.Context, client *http.Client, logger common.Logger, cssText, base string) []fontFace {
	sheet, err := parseStylesheet(cssText)
	if err != nil {
		logger.Warningf("error parsing stylesheet %s: %v", describeBase(base), err)
	}

	var faces []fontFace
	for _, ref := range sheet.imports {
		importURL := resolveURL(base, ref)
		text, err := fetchText(ctx, client, importURL)
		if err != nil {
			logger.Warningf("error fetching imported stylesheet %s: %v", importURL, err)
			continue
		}
		imported, err := parseStylesheet(text)
		if err != nil {
			logger.Warningf("error parsing stylesheet %s: %v", importURL, err)
		}
		faces = append(faces, interpretRules(logger, imported.rules, importURL)...)
	}
	return append(faces, interpretRules(logger, sheet.rules, base)...)
}

func interpretRules(logger common.Logger, rules []fontFaceRule, base string) []fontFace {
	faces := make([]fontFace, 0, len(rules))
	for i, rule := range rules {
		face, err := interpretRule(i, rule, base)
		if err != nil {
			logger.Warningf("%s: %v", describeBase(base), err)
			continue
		}
		faces = append(faces, face)
	}
	return faces
}

func describeBase(base string) string {
	if base == "" {
		return "inline styles"
	}
	return base
}

// emitFaces renders, in declaration order, every face whose file resolved,
// and minifies the result. Payloads are spliced in after minification so
// their bytes are emitted verbatim.
func emitFaces(faces []fontFace, payloads map[string]string) string {
	var sb strings.Builder
	var replacements []string
	for _, face := range faces {
		payload, ok := payloads[face.url]
		if !ok {
			continue
		}
		placeholder := fmt.Sprintf("tessera-src-%d-end", len(replacements)/2)
		replacements = append(replacements, placeholder, payload)
		sb.WriteString(face.css(placeholder))
	}
	if sb.Len() == 0 {
		return ""
	}

	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	out, err := m.String("text/css", sb.String())
	if err != nil {
		out = sb.String()
	}
	return strings.NewReplacer(replacements...).Replace(out)
}

// serializeFaces writes faces back out with absolute source URLs, so the
// result can be re-parsed without a base.
func serializeFaces(faces []fontFace) string {
	var sb strings.Builder
	for _, face := range faces {
		sb.WriteString(face.css(face.url))
	}
	return sb.String()
}
