package ui

import (
	"bytes"
	stderrors "errors"
	"html/template"
	"net/http"

	"mcspec/adapters/export"
	"mcspec/app"
	"mcspec/domain/core"
	"mcspec/domain/formula"
	"mcspec/internal/resolver"
)

// previewPage is the data behind index.html.
type previewPage struct {
	Examples  []formula.Example
	Formula   string
	Vars      []string
	Refs      []string
	State     string
	Summary   string
	Hint      string
	Error     string
	Stage     string
	Terms     []string
	Report    template.HTML
	Canonical string
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	a.render(w, "index.html", previewPage{Examples: formula.Examples(), State: string(app.StateEmpty)})
}

// handlePreview resolves ?formula= with optional repeated ?var=name=kind[:arg]
// and ?ref=name=level parameters.
func (a *App) handlePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := previewPage{
		Examples: formula.Examples(),
		Formula:  q.Get("formula"),
		Vars:     q["var"],
		Refs:     q["ref"],
	}

	manual, err := resolver.ParseManualSpecs(page.Vars)
	if err != nil {
		page.State, page.Error = string(app.StateFailed), err.Error()
		a.render(w, "index.html", page)
		return
	}
	refs, err := resolver.ParseReferenceOverrides(page.Refs)
	if err != nil {
		page.State, page.Error = string(app.StateFailed), err.Error()
		a.render(w, "index.html", page)
		return
	}
	opts := a.options
	opts.ReferenceOverrides = refs

	res := a.assembler.Resolve(r.Context(), app.Input{Formula: page.Formula, Manual: manual, Options: opts})
	page.State = string(res.State)
	page.Summary = res.Summary()
	switch res.State {
	case app.StateReady:
		page.Terms = res.Spec.TermNames()
		page.Canonical = res.Spec.Formula()
		page.Report = template.HTML(export.HTML(export.Model{Spec: res.Spec}))
	case app.StateFailed:
		page.Stage = string(res.Stage)
		page.Error = core.Unstage(res.Err).Error()
		var pe *core.ParseError
		if stderrors.As(res.Err, &pe) {
			page.Hint = pe.Hint(page.Formula)
		}
	}
	a.render(w, "index.html", page)
}

// render executes into a buffer first so template errors never produce a
// half-written page.
func (a *App) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, name, data); err != nil {
		a.logger.Error("template error for %s: %v", name, err)
		http.Error(w, "template rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		a.logger.Warn("error writing response: %v", err)
	}
}
