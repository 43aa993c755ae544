package report

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/ternarybob/alphapicks/internal/models"
)

const (
	// Subject is the fixed subject line of every dispatched report
	Subject = "🤑 Kalshi Alpha Picks"

	// Title is the first line of the plain-text body
	Title = "🤑 Tonight's Kalshi Alpha Picks (Demo)"

	DefaultLinkTemplate = "https://demo.kalshi.co/market/%s"
)

// Builder renders picks into a Report. It performs no I/O.
type Builder struct {
	linkTemplate string
	markdown     goldmark.Markdown
	logger       arbor.ILogger
}

func NewBuilder(linkTemplate string, logger arbor.ILogger) *Builder {
	if !strings.Contains(linkTemplate, "%s") {
		linkTemplate = DefaultLinkTemplate
	}

	return &Builder{
		linkTemplate: linkTemplate,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
				gmhtml.WithXHTML(),
			),
		),
		logger: logger,
	}
}

// DetailURL interpolates a market identifier into a link template
func DetailURL(template, identifier string) string {
	return fmt.Sprintf(template, url.PathEscape(identifier))
}

// Build renders the plain-text body and its HTML alternative.
// Picks are rendered in the order given, numbered from 1.
func (b *Builder) Build(picks []models.Pick) models.Report {
	return models.Report{
		Subject: Subject,
		Text:    b.Text(picks),
		HTML:    b.HTML(picks),
	}
}

// Text renders the canonical plain-text body
func (b *Builder) Text(picks []models.Pick) string {
	var sb strings.Builder
	sb.WriteString(Title)
	sb.WriteString("\n\n")

	for i, pick := range picks {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, pick.Market.Question)
		fmt.Fprintf(&sb, "   Price: $%.2f | Alpha: %.2f\n", pick.Market.Price, pick.Score)
		fmt.Fprintf(&sb, "   Research: %s\n", pick.Research.Display())
		fmt.Fprintf(&sb, "   Link: %s\n\n", DetailURL(b.linkTemplate, pick.Market.Identifier))
	}

	return sb.String()
}

// Markdown renders the same content as GitHub-flavoured markdown
func (b *Builder) Markdown(picks []models.Pick) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(escapeMarkdown(Title))
	sb.WriteString("\n\n")

	if len(picks) == 0 {
		sb.WriteString("_No markets qualified tonight._\n")
		return sb.String()
	}

	for i, pick := range picks {
		link := DetailURL(b.linkTemplate, pick.Market.Identifier)
		fmt.Fprintf(&sb, "## %d. %s\n\n", i+1, escapeMarkdown(pick.Market.Question))
		sb.WriteString("| Price | Alpha |\n|---|---|\n")
		fmt.Fprintf(&sb, "| $%.2f | %.2f |\n\n", pick.Market.Price, pick.Score)
		fmt.Fprintf(&sb, "**Research:** %s\n\n", researchMarkdown(pick.Research))
		fmt.Fprintf(&sb, "[%s](<%s>)\n\n", escapeMarkdown(link), link)
	}

	return sb.String()
}

// HTML converts the markdown rendering and wraps it in the email template.
// A conversion failure falls back to the escaped plain text.
func (b *Builder) HTML(picks []models.Pick) string {
	var buf bytes.Buffer
	if err := b.markdown.Convert([]byte(b.Markdown(picks)), &buf); err != nil {
		b.logger.Error().Err(err).Msg("Failed to convert report markdown to HTML")
		return wrapInEmailTemplate("<pre>" + html.EscapeString(b.Text(picks)) + "</pre>")
	}

	return wrapInEmailTemplate(buf.String())
}

func researchMarkdown(research models.Research) string {
	switch research.Status {
	case models.ResearchStatusSuccess:
		return escapeMarkdown(research.Display())
	default:
		return "_" + escapeMarkdown(research.Display()) + "_"
	}
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
	"|", `\|`,
	"~", `\~`,
	"!", `\!`,
	"\n", " ",
	"\r", " ",
)

// escapeMarkdown neutralises markdown syntax in untrusted market text
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
