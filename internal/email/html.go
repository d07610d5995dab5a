package email

import (
	"regexp"
	"strings"
)

var (
	styleBlock  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptBlock = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	anyTag      = regexp.MustCompile(`<[^>]+>`)
	domainRe    = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,61}[a-zA-Z0-9]?\.[a-zA-Z]{2,}$`)

	// Applied in order, so "&amp;lt;" decodes all the way to "<".
	entities = [][2]string{
		{"&nbsp;", " "},
		{"&amp;", "&"},
		{"&lt;", "<"},
		{"&gt;", ">"},
		{"&quot;", `"`},
	}
)

// StripHTML produces the plain-text alternative of an HTML body.
func StripHTML(html string) string {
	text := styleBlock.ReplaceAllString(html, "")
	text = scriptBlock.ReplaceAllString(text, "")
	text = anyTag.ReplaceAllString(text, "")
	for _, e := range entities {
		text = strings.ReplaceAll(text, e[0], e[1])
	}
	return strings.TrimSpace(text)
}

// VerifySenderDomain only checks the domain is syntactically valid.
func VerifySenderDomain(domain string) bool {
	return domainRe.MatchString(domain)
}

// HTMLParams feeds BuildHTML.
type HTMLParams struct {
	Content        string
	Preheader      string
	FooterText     string
	UnsubscribeURL string
}

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Email</title>
  <style>
    body { margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; line-height: 1.6; color: #333; background-color: #f4f4f4; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .content { padding: 30px 20px; }
    .footer { padding: 20px; text-align: center; font-size: 12px; color: #666; background-color: #f9f9f9; border-top: 1px solid #e0e0e0; }
    .footer a { color: #2563eb; text-decoration: none; }
    .preheader { display: none; max-height: 0; overflow: hidden; }
    a { color: #2563eb; }
    p { margin: 0 0 15px 0; }
  </style>
</head>
<body>
`

// BuildHTML wraps rendered content in the responsive email shell.
// Content is inserted as-is.
func BuildHTML(p HTMLParams) string {
	var b strings.Builder
	b.WriteString(htmlHead)
	if p.Preheader != "" {
		b.WriteString(`  <div class="preheader">` + p.Preheader + "</div>\n")
	}
	b.WriteString("  <div class=\"container\">\n")
	b.WriteString("    <div class=\"content\">\n      " + p.Content + "\n    </div>\n")
	b.WriteString("    <div class=\"footer\">\n      " + p.FooterText + "\n")
	if p.UnsubscribeURL != "" {
		b.WriteString(`      <br><a href="` + p.UnsubscribeURL + "\">Unsubscribe</a>\n")
	}
	b.WriteString("    </div>\n  </div>\n</body>\n</html>")
	return b.String()
}
