package campaign

import (
	"html"

	"github.com/osteele/liquid"

	"github.com/ignite/outbound/internal/domain"
)

// personalizer renders per-recipient tokens such as {{ name }} and
// {{ email }}. It is lax: a template that fails to parse or render is sent
// unchanged, and unknown variables render empty.
type personalizer struct {
	engine *liquid.Engine
}

func newPersonalizer() *personalizer {
	return &personalizer{engine: liquid.NewEngine()}
}

// renderText fills a plain-text template such as the subject line.
func (p *personalizer) renderText(src string, r domain.Recipient) string {
	return p.render(src, bindings(r, false))
}

// renderHTML fills the message body. Contact data is HTML-escaped so a name
// cannot inject markup or links.
func (p *personalizer) renderHTML(src string, r domain.Recipient) string {
	return p.render(src, bindings(r, true))
}

func (p *personalizer) render(src string, vars map[string]any) string {
	out, err := p.engine.ParseAndRenderString(src, vars)
	if err != nil {
		return src
	}
	return out
}

func bindings(r domain.Recipient, escape bool) map[string]any {
	name := r.Name
	if name == "" {
		name = r.Email
	}
	vars := map[string]string{
		"name":         name,
		"email":        r.Email,
		"recipient_id": r.ID,
	}
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		if escape {
			v = html.EscapeString(v)
		}
		out[k] = v
	}
	return out
}
