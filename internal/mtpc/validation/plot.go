package validation

import (
	"fmt"
	"io"

	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/vg"
	_ "gonum.org/v1/plot/vg/vgimg" // png
)

// WritePNG renders the residual (or pull) histogram of an axis as a PNG.
func (r *Residuals) WritePNG(w io.Writer, a Axis, pull bool) error {
	h := r.Histogram(a, pull)
	if h == nil {
		return fmt.Errorf("validation: unknown axis %q", a)
	}

	hh := hplot.NewH1D(h)

	p := hplot.New()
	if pull {
		p.Title.Text = fmt.Sprintf("Pull %s", a)
		p.X.Label.Text = fmt.Sprintf("Δ%s / σ", a)
	} else {
		p.Title.Text = fmt.Sprintf("Residual %s", a)
		p.X.Label.Text = fmt.Sprintf("Δ%s (cm)", a)
	}
	p.Y.Label.Text = "hits"
	p.Add(hh)

	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("validation: render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
