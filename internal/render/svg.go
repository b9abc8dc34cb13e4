// Package render draws hill charts as standalone SVG documents.
package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"

	"hillchart/internal/hill"
)

const (
	gridColor       = "#e5e7eb"
	curveColor      = "#3b82f6"
	centreColor     = "#94a3b8"
	labelColor      = "#1f2937"
	captionColor    = "#6b7280"
	dotRadius       = 8
	labelOffset     = 15
	uphillCaption   = "Figuring things out"
	downhillCaption = "Making it happen"
)

// GridPositions are the positions that get a vertical guide line.
var GridPositions = []float64{0, 25, 50, 75, 100}

// SVG writes a hill chart for items. Stacked items get a dashed connector
// back to their place on the curve.
func SVG(w io.Writer, title string, items []hill.Item, p hill.Params) error {
	placed, err := hill.Layout(items, p)
	if err != nil {
		return err
	}
	curve := p.Curve()
	cw, top, bottom := p.PlotWidth(), p.Padding, p.Padding+p.PlotHeight()

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(p.Width), num(p.Height), num(p.Width), num(p.Height))
	if title != "" {
		b.WriteString("<title>")
		escape(&b, title)
		b.WriteString("</title>\n")
	}

	b.WriteString(`<g class="grid">` + "\n")
	for _, pos := range GridPositions {
		x := p.Padding + cw*pos/hill.MaxPosition
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1" stroke-dasharray="4,4"/>`+"\n",
			num(x), num(top), num(x), num(bottom), gridColor)
	}
	b.WriteString("</g>\n")

	fmt.Fprintf(&b, `<path d="M %s %s Q %s %s %s %s" fill="none" stroke="%s" stroke-width="3"/>`+"\n",
		num(curve.Start.X), num(curve.Start.Y), num(curve.Control.X), num(curve.Control.Y),
		num(curve.End.X), num(curve.End.Y), curveColor)

	mid := p.Padding + cw/2
	fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="2" stroke-dasharray="8,4"/>`+"\n",
		num(mid), num(top), num(mid), num(bottom), centreColor)

	captionY := bottom + p.Padding/2
	caption(&b, p.Padding+cw/4, captionY, uphillCaption)
	caption(&b, p.Padding+3*cw/4, captionY, downhillCaption)

	for _, it := range placed {
		fmt.Fprintf(&b, `<g class="item" data-id="%d" data-position="%s">`+"\n", it.ID, num(it.Position))
		if it.Stacked() {
			fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1.5" stroke-dasharray="3,3" opacity="0.6"/>`+"\n",
				num(it.X), num(it.Y), num(it.X), num(it.BaseY), centreColor)
		}
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%d" fill="%s" stroke="#fff" stroke-width="2"/>`+"\n",
			num(it.X), num(it.Y), dotRadius, curveColor)
		fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="12" fill="%s">`,
			num(it.X), num(it.Y-labelOffset), labelColor)
		escape(&b, it.Label)
		b.WriteString("</text>\n</g>\n")
	}

	b.WriteString("</svg>\n")
	_, err = w.Write(b.Bytes())
	return err
}

func caption(b *bytes.Buffer, x, y float64, text string) {
	fmt.Fprintf(b, `<text x="%s" y="%s" text-anchor="middle" font-size="12" fill="%s">`, num(x), num(y), captionColor)
	escape(b, text)
	b.WriteString("</text>\n")
}

func escape(b *bytes.Buffer, s string) {
	// Writes to a bytes.Buffer never fail.
	_ = xml.EscapeText(b, []byte(s))
}

// num prints a coordinate with at most two decimals.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
