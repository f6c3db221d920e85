package analysis

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Chart styling.
const (
	DefaultChartWidth  = 1024
	DefaultChartHeight = 400

	titleFontSize   = 12.0
	axisFontSize    = 10.0
	gridLineWidth   = 1.0
	seriesLineWidth = 3.0
	seriesDotWidth  = 4.0
	chartPadding    = 20
)

// ChartBuilder renders the daily completion chart of an analyzed week.
type ChartBuilder struct {
	week   *GroupWeek
	width  int
	height int
}

// NewChartBuilder creates a chart builder for a group week.
func NewChartBuilder(week *GroupWeek, width, height int) *ChartBuilder {
	if width <= 0 {
		width = DefaultChartWidth
	}

	if height <= 0 {
		height = DefaultChartHeight
	}

	return &ChartBuilder{week: week, width: width, height: height}
}

// DailyCounts returns, per day of the week, how many members completed,
// were absent and completed late.
func (b *ChartBuilder) DailyCounts() (completed, absent, late []float64) {
	days := b.week.Window.Days()
	completed = make([]float64, len(days))
	absent = make([]float64, len(days))
	late = make([]float64, len(days))

	cutoff := b.week.Group.LateDakaTime

	for i, date := range days {
		for _, m := range b.week.Members {
			day, ok := m.Day(date)
			if !ok {
				continue
			}

			if day.CompletedTime == "" {
				absent[i]++
				continue
			}

			completed[i]++

			if cutoff != "" && day.CompletedTime > cutoff {
				late[i]++
			}
		}
	}

	return completed, absent, late
}

// Build renders the chart as PNG.
func (b *ChartBuilder) Build() (*bytes.Buffer, error) {
	completed, absent, late := b.DailyCounts()

	xValues := make([]float64, len(completed))
	for i := range xValues {
		xValues[i] = float64(i)
	}

	graph := &chart.Chart{
		Title:      fmt.Sprintf("%s %s", b.week.Group.Name, b.week.Week),
		TitleStyle: chart.Style{FontSize: titleFontSize},
		Width:      b.width,
		Height:     b.height,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    chartPadding,
				Left:   chartPadding,
				Right:  chartPadding,
				Bottom: chartPadding,
			},
		},
		XAxis: b.xAxis(),
		YAxis: chart.YAxis{
			Style: chart.Style{FontSize: axisFontSize},
			GridMajorStyle: chart.Style{
				StrokeColor: chart.ColorAlternateGray,
				StrokeWidth: gridLineWidth,
			},
			ValueFormatter: func(v any) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			series("Completed", xValues, completed, chart.ColorGreen),
			series("Absent", xValues, absent, chart.ColorRed),
			series("Late", xValues, late, chart.ColorOrange),
		},
	}

	graph.Elements = []chart.Renderable{chart.Legend(graph)}

	buf := new(bytes.Buffer)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("failed to render week chart: %w", err)
	}

	return buf, nil
}

func (b *ChartBuilder) xAxis() chart.XAxis {
	days := b.week.Window.Days()
	gridLines := make([]chart.GridLine, len(days))
	ticks := make([]chart.Tick, len(days))

	for i, date := range days {
		gridLines[i] = chart.GridLine{Value: float64(i)}
		// MM-DD
		ticks[i] = chart.Tick{Value: float64(i), Label: date[5:]}
	}

	return chart.XAxis{
		Style: chart.Style{FontSize: axisFontSize},
		GridMajorStyle: chart.Style{
			StrokeColor: chart.ColorAlternateGray,
			StrokeWidth: gridLineWidth,
		},
		GridLines:    gridLines,
		Ticks:        ticks,
		TickPosition: chart.TickPositionUnderTick,
	}
}

func series(name string, xValues, yValues []float64, color drawing.Color) chart.Series {
	return chart.ContinuousSeries{
		Name:    name,
		XValues: xValues,
		YValues: yValues,
		Style: chart.Style{
			StrokeColor: color,
			StrokeWidth: seriesLineWidth,
			DotColor:    color,
			DotWidth:    seriesDotWidth,
		},
	}
}
