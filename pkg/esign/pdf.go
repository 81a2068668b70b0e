package esign

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	theme "github.com/goliatone/go-theme"
)

var (
	headingOne = regexp.MustCompile(`(?i)<h1[^>]*>`)
	headingTwo = regexp.MustCompile(`(?i)<h2[^>]*>`)
	listItem   = regexp.MustCompile(`(?i)<li[^>]*>`)
	blockTag   = regexp.MustCompile(`(?i)</?(p|div|ul|ol|section|footer|h1|h2|li|br)[^>]*>`)
	pageFooter = regexp.MustCompile(`^Page \d+ of \d+$`)
	spaceRun   = regexp.MustCompile(`\s+`)
	errNoPages = errors.New("esign: no pages to render")
)

var levelMarkers = []string{"", "@@h1@@", "@@h2@@", "@@li@@"}

// line is one block of agreement text with its presentation.
type line struct {
	text  string
	level int // 1 and 2 are headings, 3 list items, 0 paragraphs
}

// textLines flattens rendered page HTML into text blocks.
func textLines(pageHTML string) []line {
	marked := headingOne.ReplaceAllString(pageHTML, "\n"+levelMarkers[1])
	marked = headingTwo.ReplaceAllString(marked, "\n"+levelMarkers[2])
	marked = listItem.ReplaceAllString(marked, "\n"+levelMarkers[3])
	marked = blockTag.ReplaceAllString(marked, "\n")
	plain := html.UnescapeString(signerPolicy().Sanitize(marked))

	var out []line
	for _, raw := range strings.Split(plain, "\n") {
		raw = strings.TrimSpace(raw)
		level := 0
		for i := 1; i < len(levelMarkers); i++ {
			if strings.HasPrefix(raw, levelMarkers[i]) {
				level = i
				raw = strings.TrimPrefix(raw, levelMarkers[i])
				break
			}
		}
		text := strings.TrimSpace(spaceRun.ReplaceAllString(raw, " "))
		if text == "" || pageFooter.MatchString(text) {
			continue
		}
		out = append(out, line{text: text, level: level})
	}
	return out
}

// RenderPDF writes the agreement pages to an A4 document, one PDF page per
// agreement page unless the text overflows.
func RenderPDF(pages []Page, branding *theme.RendererConfig, created time.Time) ([]byte, error) {
	if len(pages) == 0 {
		return nil, errNoPages
	}
	tokens := map[string]string{}
	if branding != nil {
		tokens = branding.Tokens
	}
	font := tokens[TokenFont]
	if font == "" {
		font = "Helvetica"
	}
	br, bg, bb := rgb(tokens[TokenBrand])
	tr, tg, tb := rgb(tokens[TokenText])
	mr, mg, mb := rgb(tokens[TokenMuted])

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(40, 40, 40)
	pdf.SetAutoPageBreak(true, 60)
	pdf.SetTitle("E-Signature Agreement", true)
	pdf.SetCreator("go-boarding", true)
	if !created.IsZero() {
		pdf.SetCreationDate(created)
	}
	pdf.AliasNbPages("{nb}")
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-40)
		pdf.SetFont(font, "", 8)
		pdf.SetTextColor(mr, mg, mb)
		pdf.CellFormat(0, 12, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	for _, page := range pages {
		pdf.AddPage()
		for _, l := range textLines(page.HTML) {
			switch l.level {
			case 1:
				pdf.SetFont(font, "B", 16)
				pdf.SetTextColor(br, bg, bb)
				pdf.MultiCell(0, 20, translate(l.text), "", "L", false)
				pdf.Ln(6)
			case 2:
				pdf.Ln(4)
				pdf.SetFont(font, "B", 12)
				pdf.SetTextColor(tr, tg, tb)
				pdf.MultiCell(0, 16, translate(l.text), "", "L", false)
			case 3:
				pdf.SetFont(font, "", 11)
				pdf.SetTextColor(tr, tg, tb)
				pdf.MultiCell(0, 15, translate("- "+l.text), "", "L", false)
			default:
				pdf.SetFont(font, "", 11)
				pdf.SetTextColor(tr, tg, tb)
				pdf.MultiCell(0, 15, translate(l.text), "", "L", false)
				pdf.Ln(4)
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("esign: write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
