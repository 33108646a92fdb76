// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/2dChan/r2voronoi"
	"github.com/2dChan/r2voronoi/arena"
	"github.com/2dChan/r2voronoi/dispersion"
	svg "github.com/ajstarks/svgo"
	"github.com/golang/geo/r2"
)

const (
	diagramSize   = 800
	diagramMargin = 40

	chartWidth   = 1000
	chartHeight  = 600
	marginLeft   = 90
	marginRight  = 170
	marginTop    = 70
	marginBottom = 70
	axisTicks    = 5
	maxLegend    = 20

	arenaStyle = "fill:rgb(235,235,235);stroke:rgb(60,60,60);stroke-width:2"
	holeStyle  = "fill:rgb(255,255,255);stroke:rgb(60,60,60);stroke-width:2"
	cellStyle  = "fill:%s;fill-opacity:0.35;stroke:rgb(40,40,40);stroke-width:1"
	siteStyle  = "fill:rgb(0,0,0)"
	awayStyle  = "fill:rgb(255,0,0)"
	titleStyle = "font-family:sans-serif;font-size:18px;text-anchor:middle"
	labelStyle = "font-family:sans-serif;font-size:13px;text-anchor:middle"
	tickStyle  = "font-family:sans-serif;font-size:11px;text-anchor:end"
	axisStyle  = "stroke:rgb(0,0,0);stroke-width:1"
	gridStyle  = "stroke:rgb(220,220,220);stroke-width:1"
	refStyle   = "stroke:rgb(255,0,0);stroke-width:2"
)

// Same cycle as the default matplotlib palette.
var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// RenderDiagram draws the arena, the regions of vd and the robot positions.
// Robots outside the arena are drawn in red.
func RenderDiagram(w io.Writer, shape *arena.Shape, vd *r2voronoi.Diagram, title string) {
	scale := float64(diagramSize/2-diagramMargin) / shape.OuterRadius()
	toScreen := func(p r2.Point) (int, int) {
		return int(math.Round(diagramSize/2 + p.X*scale)), int(math.Round(diagramSize/2 - p.Y*scale))
	}
	polygon := func(canvas *svg.SVG, ring []r2.Point, style string) {
		xs, ys := make([]int, len(ring)), make([]int, len(ring))
		for i, p := range ring {
			xs[i], ys[i] = toScreen(p)
		}
		canvas.Polygon(xs, ys, style)
	}

	canvas := svg.New(w)
	canvas.Start(diagramSize, diagramSize)
	canvas.Title(title)
	canvas.Rect(0, 0, diagramSize, diagramSize, "fill:rgb(255,255,255)")
	canvas.Text(diagramSize/2, diagramMargin/2+6, title, titleStyle)

	polygon(canvas, shape.Outer(), arenaStyle)
	if inner := shape.Inner(); inner != nil {
		polygon(canvas, inner, holeStyle)
	}

	for i := range vd.NumCells() {
		cell, _ := vd.Cell(i)
		style := fmt.Sprintf(cellStyle, palette[i%len(palette)])
		for _, piece := range cell.Pieces() {
			polygon(canvas, piece, style)
		}
	}
	for i, site := range vd.Sites {
		style := siteStyle
		if !vd.Boundary.Contains(site) {
			style = awayStyle
		}
		x, y := toScreen(site)
		canvas.Circle(x, y, 3, style)
		canvas.Text(x+4, y-4, strconv.Itoa(i), "font-family:sans-serif;font-size:9px")
	}
	canvas.End()
}

// RenderDeviations plots the region areas of every tick against the region
// index, with the reference area as a red horizontal line.
func RenderDeviations(w io.Writer, res *dispersion.Result, legacy bool) {
	n := res.NumRobots()
	areaRef := meanAreaRef(res)
	if legacy {
		areaRef = res.LegacyAreaRef()
	}

	yMin, yMax := areaRef, areaRef
	for _, rec := range res.Records {
		for _, a := range rec.Areas {
			yMin, yMax = math.Min(yMin, a), math.Max(yMax, a)
		}
	}

	title := fmt.Sprintf("Distances of %d Voronoi Regions from the AreaRef Per Tick (AreaRef = %.6g)", n, areaRef)
	c := newChart(w, title, "region id (not related to kilobots id)", "region area (mm²)",
		0, float64(max(n-1, 1)), yMin, yMax)

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	for i, rec := range res.Records {
		color := palette[i%len(palette)]
		c.polyline(xs, rec.Areas, "fill:none;stroke-width:1.5;stroke:"+color)
		c.legend(i, strconv.FormatInt(rec.Tick, 10), color)
	}
	c.legendOverflow(len(res.Records))
	c.hline(areaRef, refStyle)
	c.end()
}

// RenderSigma plots the standard deviation of region areas against the tick.
func RenderSigma(w io.Writer, res *dispersion.Result) {
	xs := make([]float64, len(res.Sigma))
	for i, p := range res.Sigma {
		xs[i] = float64(p.Tick)
	}
	ys := res.Sigma.Values()

	xMin, xMax := bounds(xs)
	yMin, yMax := bounds(ys)
	title := fmt.Sprintf("Standard Deviation of %d Voronoi Regions Per Tick", res.NumRobots())
	c := newChart(w, title, "ticks", "sigma (mm²)", xMin, xMax, math.Min(0, yMin), yMax)
	c.polyline(xs, ys, "fill:none;stroke-width:2;stroke:"+palette[0])
	for i := range xs {
		x, y := c.px(xs[i]), c.py(ys[i])
		c.canvas.Circle(x, y, 2, "fill:"+palette[0])
	}
	c.end()
}

func meanAreaRef(res *dispersion.Result) float64 {
	if len(res.Records) == 0 {
		return 0
	}
	sum := 0.0
	for _, rec := range res.Records {
		sum += rec.AreaRef
	}
	return sum / float64(len(res.Records))
}

func bounds(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 1
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}

// chart is a minimal line chart with labelled axes.
type chart struct {
	canvas     *svg.SVG
	xMin, xMax float64
	yMin, yMax float64
}

func newChart(w io.Writer, title, xLabel, yLabel string, xMin, xMax, yMin, yMax float64) *chart {
	if xMax <= xMin {
		xMin, xMax = xMin-1, xMax+1
	}
	if yMax <= yMin {
		pad := math.Max(math.Abs(yMin)*0.05, 1)
		yMin, yMax = yMin-pad, yMax+pad
	} else {
		pad := (yMax - yMin) * 0.05
		yMin, yMax = yMin-pad, yMax+pad
	}
	c := &chart{canvas: svg.New(w), xMin: xMin, xMax: xMax, yMin: yMin, yMax: yMax}

	canvas := c.canvas
	canvas.Start(chartWidth, chartHeight)
	canvas.Title(title)
	canvas.Rect(0, 0, chartWidth, chartHeight, "fill:rgb(255,255,255)")
	canvas.Text(chartWidth/2, marginTop/2, title, titleStyle)

	left, right := marginLeft, chartWidth-marginRight
	top, bottom := marginTop, chartHeight-marginBottom
	for k := range axisTicks + 1 {
		f := float64(k) / axisTicks
		xv := xMin + f*(xMax-xMin)
		yv := yMin + f*(yMax-yMin)
		x, y := c.px(xv), c.py(yv)
		canvas.Line(x, top, x, bottom, gridStyle)
		canvas.Line(left, y, right, y, gridStyle)
		canvas.Text(x, bottom+18, strconv.FormatFloat(xv, 'g', 5, 64), labelStyle)
		canvas.Text(left-6, y+4, strconv.FormatFloat(yv, 'g', 5, 64), tickStyle)
	}
	canvas.Line(left, bottom, right, bottom, axisStyle)
	canvas.Line(left, top, left, bottom, axisStyle)
	canvas.Text((left+right)/2, chartHeight-marginBottom/3, xLabel, labelStyle)
	canvas.TranslateRotate(marginLeft/4, (top+bottom)/2, -90)
	canvas.Text(0, 0, yLabel, labelStyle)
	canvas.Gend()
	return c
}

func (c *chart) px(x float64) int {
	f := (x - c.xMin) / (c.xMax - c.xMin)
	return marginLeft + int(math.Round(f*float64(chartWidth-marginLeft-marginRight)))
}

func (c *chart) py(y float64) int {
	f := (y - c.yMin) / (c.yMax - c.yMin)
	return chartHeight - marginBottom - int(math.Round(f*float64(chartHeight-marginTop-marginBottom)))
}

func (c *chart) polyline(xs, ys []float64, style string) {
	px, py := make([]int, len(xs)), make([]int, len(xs))
	for i := range xs {
		px[i], py[i] = c.px(xs[i]), c.py(ys[i])
	}
	c.canvas.Polyline(px, py, style)
}

func (c *chart) hline(y float64, style string) {
	c.canvas.Line(marginLeft, c.py(y), chartWidth-marginRight, c.py(y), style)
}

func (c *chart) legend(i int, label, color string) {
	if i >= maxLegend {
		return
	}
	x := chartWidth - marginRight + 15
	y := marginTop + 10 + i*18
	c.canvas.Line(x, y, x+20, y, "stroke-width:2;stroke:"+color)
	c.canvas.Text(x+26, y+4, label, "font-family:sans-serif;font-size:11px")
}

func (c *chart) legendOverflow(total int) {
	if total <= maxLegend {
		return
	}
	x := chartWidth - marginRight + 15
	y := marginTop + 10 + maxLegend*18
	c.canvas.Text(x, y+4, fmt.Sprintf("+%d more", total-maxLegend), "font-family:sans-serif;font-size:11px")
}

func (c *chart) end() {
	c.canvas.End()
}
