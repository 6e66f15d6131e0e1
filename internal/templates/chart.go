package templates

import (
	"deploytracker/internal/models"
	"deploytracker/internal/services"
)

// Chart geometry in SVG user units.
const (
	chartWidth   = 400
	chartHeight  = 300
	axisX        = 40
	plotTop      = 10
	plotBottom   = 270
	barGap       = 20
	chartTicks   = 4
	labelOffsetY = 20
)

type ChartView struct {
	Width      int
	Height     int
	AxisX      int
	TickLabelX int
	LabelY     int
	Bars       []ChartBar
	Ticks      []ChartTick
}

type ChartBar struct {
	Name        models.Environment
	Deployments int
	X           int
	Y           int
	Width       int
	Height      int
	LabelX      int
}

type ChartTick struct {
	Value int
	Y     int
}

// NewChartView lays out one bar per point. Bar heights scale to the
// tallest bar; an all-zero chart draws flat bars against a 0..1 axis.
func NewChartView(points []models.ChartPoint) ChartView {
	view := ChartView{
		Width:      chartWidth,
		Height:     chartHeight,
		AxisX:      axisX,
		TickLabelX: axisX - 6,
		LabelY:     plotBottom + labelOffsetY,
	}

	scaleMax := services.MaxDeployments(points)
	if scaleMax == 0 {
		scaleMax = 1
	}
	// Round the axis up so ticks land on whole numbers.
	if rem := scaleMax % chartTicks; rem != 0 && scaleMax > chartTicks {
		scaleMax += chartTicks - rem
	}
	plotHeight := plotBottom - plotTop

	step := scaleMax / chartTicks
	if step == 0 {
		step = 1
	}
	for v := 0; v <= scaleMax; v += step {
		view.Ticks = append(view.Ticks, ChartTick{
			Value: v,
			Y:     plotBottom - v*plotHeight/scaleMax,
		})
	}

	if len(points) == 0 {
		return view
	}
	slot := (chartWidth - axisX) / len(points)
	barWidth := slot - barGap
	for i, p := range points {
		h := p.Deployments * plotHeight / scaleMax
		x := axisX + i*slot + barGap/2
		view.Bars = append(view.Bars, ChartBar{
			Name:        p.Name,
			Deployments: p.Deployments,
			X:           x,
			Y:           plotBottom - h,
			Width:       barWidth,
			Height:      h,
			LabelX:      x + barWidth/2,
		})
	}
	return view
}
