// Package viz renders per-step diagnostic plots of a clustering sweep.
//
// Plots show 2·VAF, the scale on which clone fractions live. One block
// gives a histogram with a line per clone, two blocks a scatter coloured by
// clone, and three or more blocks a scatter on the first two principal
// components.
package viz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/hupe1980/emclone/blobstore"
	"github.com/hupe1980/emclone/search"
)

// ErrNoMutations is returned when there is nothing to plot.
var ErrNoMutations = errors.New("viz: no mutations")

// Default plot size.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

const histBins = 50

var fpColor = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}

// Renderer writes a PNG of every accepted step to a store under
// search.StepArtifact names.
type Renderer struct {
	store  blobstore.Store
	vaf    *mat.Dense
	width  vg.Length
	height vg.Length
}

var _ search.Observer = (*Renderer)(nil)

// NewRenderer plots steps over the given VAF matrix (mutations x blocks).
func NewRenderer(store blobstore.Store, vaf *mat.Dense) *Renderer {
	return &Renderer{store: store, vaf: vaf, width: DefaultWidth, height: DefaultHeight}
}

// WithSize returns a copy of r drawing at the given size.
func (r *Renderer) WithSize(width, height vg.Length) *Renderer {
	c := *r
	c.width, c.height = width, height
	return &c
}

// OnStep implements search.Observer.
func (r *Renderer) OnStep(ctx context.Context, s *search.Snapshot) error {
	var buf bytes.Buffer
	if err := Render(&buf, r.vaf, s, r.width, r.height); err != nil {
		return err
	}
	return r.store.Put(ctx, search.StepArtifact(s.K, s.Trial, s.Step), buf.Bytes())
}

// Render draws s as a PNG.
func Render(w io.Writer, vaf *mat.Dense, s *search.Snapshot, width, height vg.Length) error {
	n, blocks := vaf.Dims()
	if n == 0 {
		return ErrNoMutations
	}
	if len(s.Membership) != n {
		return fmt.Errorf("viz: %d memberships for %d mutations", len(s.Membership), n)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("K=%d trial %d step %d  L=%.1f", s.K, s.Trial, s.Step, s.Likelihood)
	p.Legend.Top = true

	doubled := mat.NewDense(n, blocks, nil)
	doubled.Scale(2, vaf)

	var err error
	switch {
	case blocks == 1:
		err = histogram(p, doubled, s)
	case blocks == 2:
		p.X.Label.Text, p.Y.Label.Text = "2·VAF block 1", "2·VAF block 2"
		err = scatter(p, doubled, mat.DenseCopyOf(s.Mixture.T()), s)
	default:
		err = projection(p, doubled, s)
	}
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

func cloneColor(s *search.Snapshot, j int) color.Color {
	if j == s.FP {
		return fpColor
	}
	return plotutil.Color(j)
}

func cloneLabel(s *search.Snapshot, j, count int) string {
	switch {
	case j == s.FP:
		return fmt.Sprintf("FP (%d)", count)
	case slices.Contains(s.Makeone, j):
		return fmt.Sprintf("clone %d* (%d)", j, count)
	default:
		return fmt.Sprintf("clone %d (%d)", j, count)
	}
}

func histogram(p *plot.Plot, doubled *mat.Dense, s *search.Snapshot) error {
	values := plotter.Values(mat.Col(nil, 0, doubled))
	h, err := plotter.NewHist(values, histBins)
	if err != nil {
		return err
	}
	h.FillColor = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	p.Add(h)

	top := 0.0
	for _, b := range h.Bins {
		top = max(top, b.Weight)
	}

	counts := s.Counts()
	for j := range s.K {
		x := s.Mixture.At(0, j)
		l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: top}})
		if err != nil {
			return err
		}
		l.LineStyle.Color = cloneColor(s, j)
		l.LineStyle.Width = vg.Points(2)
		p.Add(l)
		p.Legend.Add(cloneLabel(s, j, counts[j]), l)
	}

	p.X.Label.Text, p.Y.Label.Text = "2·VAF", "mutations"
	p.X.Min = 0
	return nil
}

// scatter plots the first two columns of points coloured by clone, with the
// clone centres marked.
func scatter(p *plot.Plot, points, centres *mat.Dense, s *search.Snapshot) error {
	groups := make([]plotter.XYs, s.K)
	for m, j := range s.Membership {
		groups[j] = append(groups[j], plotter.XY{X: points.At(m, 0), Y: points.At(m, 1)})
	}

	for j, g := range groups {
		if len(g) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(g)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		sc.GlyphStyle.Color = cloneColor(s, j)
		p.Add(sc)
		p.Legend.Add(cloneLabel(s, j, len(g)), sc)
	}

	k, _ := centres.Dims()
	xys := make(plotter.XYs, k)
	for j := range k {
		xys[j] = plotter.XY{X: centres.At(j, 0), Y: centres.At(j, 1)}
	}
	c, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	c.GlyphStyle.Shape = draw.CrossGlyph{}
	c.GlyphStyle.Radius = vg.Points(5)
	c.GlyphStyle.Color = color.Black
	p.Add(c)
	return nil
}

// projection projects mutations and clone centres on the first two
// principal components of the mutations.
func projection(p *plot.Plot, doubled *mat.Dense, s *search.Snapshot) error {
	n, blocks := doubled.Dims()
	if n < 2 {
		return fmt.Errorf("viz: need at least 2 mutations for a projection, got %d", n)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(doubled, nil); !ok {
		return errors.New("viz: principal component analysis failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	basis := vecs.Slice(0, blocks, 0, 2)

	means := make([]float64, blocks)
	for i := range blocks {
		means[i] = stat.Mean(mat.Col(nil, i, doubled), nil)
	}
	center := func(m *mat.Dense) *mat.Dense {
		r, _ := m.Dims()
		c := mat.DenseCopyOf(m)
		for i := range r {
			for b := range blocks {
				c.Set(i, b, c.At(i, b)-means[b])
			}
		}
		return c
	}

	var pts, ctr mat.Dense
	pts.Mul(center(doubled), basis)
	ctr.Mul(center(mat.DenseCopyOf(s.Mixture.T())), basis)

	p.X.Label.Text, p.Y.Label.Text = "PC1", "PC2"
	return scatter(p, &pts, &ctr, s)
}
