package export

import (
	"fmt"
	"strings"

	"mcspec/domain/modelspec"
	"mcspec/domain/variable"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders a human-readable summary of m.
func Markdown(m Model) string {
	if m.Spec == nil {
		return "_No model specified._\n"
	}
	m = m.normalize()
	spec := m.Spec

	var b strings.Builder
	b.WriteString("# Model specification\n\n")
	fmt.Fprintf(&b, "`%s`\n\n", spec.Formula())
	fmt.Fprintf(&b, "- **Dependent:** %s\n", spec.Dependent())
	fmt.Fprintf(&b, "- **Predictors:** %s\n", strings.Join(spec.Predictors(), ", "))
	if spec.IsMixed() {
		b.WriteString("- **Model:** linear mixed model\n")
	} else {
		b.WriteString("- **Model:** linear regression\n")
	}
	fmt.Fprintf(&b, "- **Fingerprint:** %s\n\n", spec.Fingerprint().Short())

	b.WriteString("## Variables\n\n")
	b.WriteString("| Variable | Type | Levels | Reference | Source |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, name := range spec.VariableNames() {
		v, _ := spec.Variable(name)
		levels := "-"
		if len(v.Levels) > 0 {
			levels = strings.Join(v.Levels, ", ")
		}
		ref := v.Reference
		if ref == "" {
			ref = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", name, v.Kind, levels, ref, v.Source)
	}

	kinds := spec.TermKinds()
	b.WriteString("\n## Effects\n\n")
	b.WriteString("| Term | Kind | Effect |\n")
	b.WriteString("|---|---|---|\n")
	for _, name := range spec.TermNames() {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", escape(name), kinds[name], num(m.Effects[name]))
	}

	if pairs := modelspec.Pairs(spec); len(pairs) > 0 {
		b.WriteString("\n## Correlations\n\n")
		b.WriteString("| Pair | r |\n")
		b.WriteString("|---|---|\n")
		for _, p := range pairs {
			fmt.Fprintf(&b, "| %s, %s | %s |\n", p[0], p[1], num(m.Correlations.Get(p[0], p[1])))
		}
	}

	if spec.IsMixed() {
		b.WriteString("\n## Random effects\n\n")
		b.WriteString("| Cluster | ICC | Size | Slope |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, c := range spec.Clusters() {
			p := m.Clusters[c.Group]
			size := fmt.Sprintf("%d clusters", p.NClusters)
			if c.IsNested() {
				size = fmt.Sprintf("%d per %s", p.NPerParent, c.Parent)
			}
			slope := "-"
			if c.HasRandomSlope {
				slope = fmt.Sprintf("%s (var %s, corr %s)", c.SlopeVariable, num(p.SlopeVariance), num(p.SlopeInterceptCorr))
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", ClusterName(c), num(p.ICC), size, slope)
		}
	}

	if n := countFactors(spec); n > 0 {
		fmt.Fprintf(&b, "\n_%d factor(s) are dummy coded against their reference level._\n", n)
	}
	return b.String()
}

// HTML renders Markdown(m) as an HTML fragment.
func HTML(m Model) []byte {
	return RenderHTML([]byte(Markdown(m)))
}

// RenderHTML converts markdown to an HTML fragment.
func RenderHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(md)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}

func countFactors(spec *modelspec.ModelSpec) int {
	n := 0
	for _, name := range predictorVariables(spec) {
		if v, ok := spec.Variable(name); ok && v.Kind == variable.KindFactor {
			n++
		}
	}
	return n
}

// escape keeps "[" in dummy names from starting a markdown link.
func escape(s string) string {
	return strings.ReplaceAll(s, "[", `\[`)
}
