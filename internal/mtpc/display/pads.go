package display

import (
	"fmt"
	"image/color"
	"io"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg" // png

	"github.com/tdis-data/mtpc.reco/internal/httputil"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/hits"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/padgeom"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/reco"
)

// PadLayoutPlot draws every pad centre of l. Pads hit in res, if given,
// are drawn on top in red.
func PadLayoutPlot(l padgeom.Layout, res *reco.EventResult) (*plot.Plot, error) {
	all := make(plotter.XYs, 0, l.NumPads())
	for ring := 0; ring < l.NumRings; ring++ {
		for pad := 0; pad < l.NumPadsPerRing; pad++ {
			x, y, err := l.PadCenter(ring, pad)
			if err != nil {
				return nil, err
			}
			all = append(all, plotter.XY{X: x, Y: y})
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Pad layout - %d rings x %d pads", l.NumRings, l.NumPadsPerRing)
	p.X.Label.Text = "X (cm)"
	p.Y.Label.Text = "Y (cm)"
	p.X.Min, p.X.Max = -l.MaxRadius, l.MaxRadius
	p.Y.Min, p.Y.Max = -l.MaxRadius, l.MaxRadius

	padPts, err := plotter.NewScatter(all)
	if err != nil {
		return nil, err
	}
	padPts.GlyphStyle = draw.GlyphStyle{
		Color:  color.RGBA{R: 120, G: 120, B: 120, A: 255},
		Radius: vg.Points(0.6),
		Shape:  draw.CircleGlyph{},
	}
	p.Add(padPts)

	if res == nil {
		return p, nil
	}
	p.Title.Text += fmt.Sprintf(", event %d", res.Event)

	hit := make(plotter.XYs, 0, len(res.Hits))
	for i := range res.Hits {
		_, ring, pad := hits.SplitCellID(res.Hits[i].CellID)
		x, y, err := l.PadCenter(ring, pad)
		if err != nil {
			continue
		}
		hit = append(hit, plotter.XY{X: x, Y: y})
	}
	if len(hit) == 0 {
		return p, nil
	}
	hitPts, err := plotter.NewScatter(hit)
	if err != nil {
		return nil, err
	}
	hitPts.GlyphStyle = draw.GlyphStyle{
		Color:  color.RGBA{R: 214, G: 39, B: 40, A: 255},
		Radius: vg.Points(2),
		Shape:  draw.CircleGlyph{},
	}
	p.Add(hitPts)
	p.Legend.Add("pads", padPts)
	p.Legend.Add("hit pads", hitPts)
	return p, nil
}

// WritePadLayoutPNG renders PadLayoutPlot as a square PNG.
func WritePadLayoutPNG(w io.Writer, l padgeom.Layout, res *reco.EventResult) error {
	p, err := PadLayoutPlot(l, res)
	if err != nil {
		return fmt.Errorf("display: pad layout: %w", err)
	}
	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("display: render pad layout: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func (ws *WebServer) handlePads(w http.ResponseWriter, r *http.Request) {
	var res *reco.EventResult
	if r.URL.Query().Get("n") != "" {
		var status int
		var err error
		res, status, err = ws.eventFromQuery(r)
		if err != nil {
			httputil.WriteJSONError(w, status, err.Error())
			return
		}
	}

	httputil.WriteRendered(w, "image/png", func(out io.Writer) error {
		return WritePadLayoutPNG(out, ws.layout, res)
	})
}
