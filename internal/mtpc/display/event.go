package display

import (
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tdis-data/mtpc.reco/internal/httputil"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/hits"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/padgeom"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/reco"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// EventChart builds the transverse view of one event: the centres of the
// hit pads, the reconstructed hits and, when known, the true positions
// labelled with the pad they fall in.
func EventChart(l padgeom.Layout, res *reco.EventResult) *charts.Scatter {
	pads := make([]opts.ScatterData, 0, len(res.Hits))
	reconstructed := make([]opts.ScatterData, 0, len(res.Hits))
	truth := make([]opts.ScatterData, 0, len(res.Hits))

	for i := range res.Hits {
		h := &res.Hits[i]
		plane, ring, pad := hits.SplitCellID(h.CellID)
		if x, y, err := l.PadCenter(ring, pad); err == nil {
			pads = append(pads, opts.ScatterData{
				Name:  fmt.Sprintf("plane %d ring %d pad %d", plane, ring, pad),
				Value: []interface{}{x, y},
			})
		}
		reconstructed = append(reconstructed, opts.ScatterData{
			Name:  fmt.Sprintf("cell %d z=%.2f", h.CellID, h.Position.Z),
			Value: []interface{}{h.Position.X, h.Position.Y},
		})
		if h.Raw != nil && h.Raw.HasTruth() {
			tp := h.Raw.TruePosition
			name := "truth outside pads"
			if ring, pad, err := l.FindPad(tp.X, tp.Y); err == nil {
				name = fmt.Sprintf("truth ring %d pad %d", ring, pad)
			}
			truth = append(truth, opts.ScatterData{
				Name:  name,
				Value: []interface{}{tp.X, tp.Y},
			})
		}
	}

	// Square, symmetric axes just past the outer pad edge.
	extent := math.Ceil(l.MaxRadius * 1.05)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "mTPC event display", Width: "800px", Height: "800px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Event %d", res.Event),
			Subtitle: fmt.Sprintf("hits=%d measurements=%d skipped=%d", len(res.Hits), len(res.Measurements), res.Skipped),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Min: -extent, Max: extent, Name: "X (cm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -extent, Max: extent, Name: "Y (cm)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("pad centres", pads, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}))
	scatter.AddSeries("reconstructed", reconstructed, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#1f77b4"}))
	if len(truth) > 0 {
		scatter.AddSeries("truth", truth, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#d62728"}))
	}
	return scatter
}

func (ws *WebServer) handleEvent(w http.ResponseWriter, r *http.Request) {
	res, status, err := ws.eventFromQuery(r)
	if err != nil {
		httputil.WriteJSONError(w, status, err.Error())
		return
	}

	httputil.WriteRendered(w, "text/html; charset=utf-8", EventChart(ws.layout, res).Render)
}
