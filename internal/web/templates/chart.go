package templates

import (
	"context"
	"io"
	"math"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataplay/internal/core"
)

const (
	chartWidth  = 640
	chartHeight = 240
	barGap      = 4
)

// BarChart draws the first series of c as an inline SVG. Negative values
// hang below the zero line.
func BarChart(c *core.ChartConfig) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		if len(c.Series) == 0 || len(c.Series[0].Data) == 0 {
			return nil
		}
		points := c.Series[0].Data

		lo, hi := 0.0, 0.0
		for _, p := range points {
			lo, hi = math.Min(lo, p.Value), math.Max(hi, p.Value)
		}
		span := hi - lo
		if span == 0 {
			span = 1
		}
		zero := float64(chartHeight) * hi / span
		barW := float64(chartWidth)/float64(len(points)) - barGap

		h.raw(`<figure class="chart"><figcaption>`)
		h.text(c.Title)
		h.rawf(`</figcaption><svg viewBox="0 0 %d %d" role="img">`, chartWidth, chartHeight+20)
		for i, p := range points {
			x := float64(i) * (barW + barGap)
			y, bh := zero-float64(chartHeight)*p.Value/span, float64(chartHeight)*math.Abs(p.Value)/span
			if p.Value < 0 {
				y = zero
			}
			h.rawf(`<rect x="%s" y="%s" width="%s" height="%s"><title>`, num(x), num(y), num(barW), num(bh))
			h.text(p.Label + ": " + strconv.FormatFloat(p.Value, 'f', -1, 64))
			h.raw("</title></rect>")
		}
		h.rawf(`<line x1="0" x2="%d" y1="%s" y2="%s"></line>`, chartWidth, num(zero), num(zero))
		if len(points) <= 20 {
			for i, p := range points {
				h.rawf(`<text x="%s" y="%d">`, num(float64(i)*(barW+barGap)+barW/2), chartHeight+15)
				h.text(p.Label)
				h.raw("</text>")
			}
		}
		h.raw("</svg></figure>")
		return h.err
	})
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
