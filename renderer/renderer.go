// Package renderer turns portfolio reports into markdown, and markdown into HTML.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"text/template"

	"github.com/etnz/stockfolio"
)

//go:embed templates/*.md
var templates embed.FS

// masked replaces amounts in privacy mode.
const masked = "****"

// RenderSummary renders the portfolio totals and, if any, the per account totals.
func RenderSummary(r *Report) string {
	partials := map[string]string{
		"report_title":     "report_title.md",
		"summary_accounts": "summary_accounts.md",
	}
	return renderTemplate("summary", "summary.md", partials, funcs(r.Privacy), r)
}

// RenderHoldings renders one line per holding followed by the totals.
func RenderHoldings(r *Report) string {
	partials := map[string]string{
		"report_title":     "report_title.md",
		"summary_accounts": "summary_accounts.md",
	}
	return renderTemplate("holdings", "holdings.md", partials, funcs(r.Privacy), r)
}

// RenderDividends renders the dividend history of one holding.
func RenderDividends(r *DividendReport) string {
	return renderTemplate("dividends", "dividends.md", nil, funcs(r.Privacy), r)
}

// funcs returns the formatting functions available to templates.
func funcs(privacy bool) template.FuncMap {
	hide := func(f func(float64) string) func(float64) string {
		if !privacy {
			return f
		}
		return func(float64) string { return masked }
	}
	return template.FuncMap{
		"money":  hide(stockfolio.FormatMoney),
		"signed": hide(stockfolio.SignedMoney),
		"price":  price,
		"shares": func(n int64) string {
			if privacy {
				return masked
			}
			return thousands(n)
		},
		"pct": func(p stockfolio.Percent) string { return p.String() },
		"spct": func(p stockfolio.Percent) string {
			return p.SignedString()
		},
	}
}

// price formats a per share price, "-" when unknown.
func price(v float64) string {
	if v <= 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// thousands formats n with a comma every three digits.
func thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, fm template.FuncMap, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(fm).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			content, err = fs.ReadFile(templates, "templates/"+file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
