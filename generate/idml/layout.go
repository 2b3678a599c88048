package idml

import (
	"math"

	"idg/config"
	"idg/template"
)

// Metrics collects every geometric constant generation depends on. Page size
// and margins come from template introspection, stacking constants from
// configuration.
type Metrics struct {
	PageWidth  float64
	PageHeight float64

	SpreadGap   float64
	FrameBase   float64
	FramePitch  float64
	FrameGutter float64

	FrameWidth  float64
	FrameHeight float64
}

func metricsFrom(t *template.Template, geo config.GeometryConfig) Metrics {
	m := Metrics{
		PageWidth:   t.PageWidth,
		PageHeight:  t.PageHeight,
		SpreadGap:   geo.SpreadGap,
		FrameBase:   geo.FrameBase,
		FramePitch:  geo.FramePitch,
		FrameGutter: geo.FrameGutter,
	}
	m.FrameWidth = t.PageWidth - t.MarginLeft - t.MarginRight
	// frames must never leak into the next stacking slot
	m.FrameHeight = geo.FramePitch - geo.FrameGutter
	return m
}

// spreadStep is the vertical pasteboard distance between consecutive spreads.
func (m Metrics) spreadStep() float64 {
	return m.PageHeight + m.SpreadGap
}

// halfSpreadWidth positions pages symmetrically about the spread spine.
func (m Metrics) halfSpreadWidth() float64 {
	return m.PageWidth / 2
}

// pageYBias centers a page vertically on its spread origin.
func (m Metrics) pageYBias() float64 {
	return -m.PageHeight / 2
}

type pagePlan struct {
	Number int
	X, Y   float64
	// GeometricBounds order is y1 x1 y2 x2
	Bounds [4]float64
}

type spreadPlan struct {
	Index   int
	OffsetY float64
	Pages   []pagePlan
}

// RequiredSpreads computes how many spreads a document with n pages occupies.
// Under the default convention the first spread holds page one alone and each
// following spread holds up to two pages; the paired convention packs pages
// two per spread from the start.
func RequiredSpreads(n int, paired bool) int {
	if n <= 0 {
		return 0
	}
	if paired {
		return (n + 1) / 2
	}
	return 1 + n/2
}

// planSpreads assigns pages to spreads and computes every transform. Page
// numbers are 1..n; odd pages take the right slot, even pages the left one.
func planSpreads(n int, m Metrics, paired bool) []spreadPlan {
	count := RequiredSpreads(n, paired)
	spreads := make([]spreadPlan, 0, count)

	for k := 0; k < count; k++ {
		sp := spreadPlan{Index: k, OffsetY: float64(k) * m.spreadStep()}

		var first, last int
		if paired {
			first, last = 2*k+1, 2*k+2
		} else if k == 0 {
			first, last = 1, 1
		} else {
			first, last = 2*k, 2*k+1
		}
		for p := first; p <= last && p <= n; p++ {
			sp.Pages = append(sp.Pages, planPage(p, sp.OffsetY, m))
		}
		spreads = append(spreads, sp)
	}
	return spreads
}

func planPage(number int, offsetY float64, m Metrics) pagePlan {
	x := m.halfSpreadWidth()
	if number%2 == 0 {
		x = -x
	}
	return pagePlan{
		Number: number,
		X:      x,
		Y:      offsetY + m.pageYBias(),
		Bounds: [4]float64{0, 0, m.PageHeight, m.PageWidth},
	}
}

// framePosition places the slot-th stacked frame of a page. The progression
// continues past any precomputed slot count: overflowing sections simply keep
// stacking below.
func framePosition(p pagePlan, slot int, m Metrics) (x, y float64) {
	return p.X, p.Y + m.FrameBase + float64(slot)*m.FramePitch
}

// checkFinite guards against programming errors in geometry arithmetic.
// Rendering non-finite transforms would corrupt the document silently.
func checkFinite(vals ...float64) {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			panic("non-finite geometry value")
		}
	}
}
