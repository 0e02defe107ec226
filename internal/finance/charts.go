package finance

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"

	"quantDashboard/internal/logging"
	"quantDashboard/internal/portfolio"
)

var chartLog = logging.New("charts")

// PricesAndValueChart plots every asset indexed to base 100 on the first date
// together with the portfolio value.
func PricesAndValueChart(res portfolio.Result) ([]byte, error) {
	if res.Empty() {
		return nil, ErrNoData
	}
	p := res.Prices
	names := make([]string, 0, len(p.Assets)+1)
	values := make([][]float64, 0, len(p.Assets)+1)
	for j, a := range p.Assets {
		names = append(names, a)
		values = append(values, rebase(p.Column(j), 100))
	}
	names = append(names, "Portfolio")
	values = append(values, res.Value.Values)
	return lineChart("Asset Prices (base 100) + Portfolio Value", strings.Join(p.Assets, ", "), p.Dates, names, values)
}

// CumulativeChart plots the growth of 1 for each asset and the portfolio.
// A missing return leaves the asset unchanged for that date.
func CumulativeChart(res portfolio.Result) ([]byte, error) {
	if res.Empty() {
		return nil, ErrNoData
	}
	r := res.Returns
	names := make([]string, 0, len(r.Assets)+1)
	values := make([][]float64, 0, len(r.Assets)+1)
	for j, a := range r.Assets {
		acc := 1.0
		col := r.Column(j)
		for i, v := range col {
			if !math.IsNaN(v) {
				acc *= 1 + v
			}
			col[i] = acc
		}
		names = append(names, a)
		values = append(values, col)
	}
	names = append(names, "Portfolio")
	values = append(values, rebase(res.Value.Values, 1))
	return lineChart("Cumulative Performance: Assets vs Portfolio", "growth of 1", r.Dates, names, values)
}

// DrawdownChart plots the running drawdown of the portfolio value in percent.
func DrawdownChart(value portfolio.Series) ([]byte, error) {
	if value.Empty() {
		return nil, ErrNoData
	}
	dd := portfolio.DrawdownSeries(value)
	pct := make([]float64, len(dd.Values))
	for i, v := range dd.Values {
		pct[i] = v * 100
	}
	sub := fmt.Sprintf("Max drawdown %.2f%%", portfolio.MaxDrawdown(value.Values)*100)
	return lineChart("Portfolio Drawdown (%)", sub, dd.Dates, []string{"Drawdown"}, [][]float64{pct})
}

// WeightsChart plots the weight held per asset in percent.
func WeightsChart(history portfolio.Frame) ([]byte, error) {
	if history.Empty() {
		return nil, ErrNoData
	}
	values := make([][]float64, len(history.Assets))
	for j := range history.Assets {
		col := history.Column(j)
		for i := range col {
			col[i] *= 100
		}
		values[j] = col
	}
	return lineChart("Weights Held (%)", "after drift and rebalance", history.Dates, history.Assets, values)
}

// CorrelationTable renders the correlation matrix as a table image.
func CorrelationTable(m portfolio.Matrix) ([]byte, error) {
	if m.Empty() {
		return nil, ErrNoData
	}
	header := append([]string{""}, m.Labels...)
	rows := make([][]string, len(m.Labels))
	for i, label := range m.Labels {
		row := make([]string, 0, len(m.Labels)+1)
		row = append(row, label)
		for _, v := range m.Data[i] {
			row = append(row, formatCell(v))
		}
		rows[i] = row
	}
	key := "corr|" + strings.Join(header, ",") + "|" + fmt.Sprint(rows)
	if img, ok := chartGet(key); ok {
		return img, nil
	}
	p, err := charts.TableRender(header, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to render table: %w", err)
	}
	img, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	chartSet(key, img)
	return img, nil
}

// StrategyChart plots a price series against the equity curve of a strategy
// started at the same level.
func StrategyChart(title string, price, equity portfolio.Series) ([]byte, error) {
	if price.Empty() || equity.Len() != price.Len() {
		return nil, ErrNoData
	}
	return lineChart(title, "price vs strategy value", price.Dates,
		[]string{"Price", "Strategy"}, [][]float64{price.Values, equity.Values})
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

// rebase scales xs so that its first present value equals base.
func rebase(xs []float64, base float64) []float64 {
	out := make([]float64, len(xs))
	first := math.NaN()
	for _, v := range xs {
		if !math.IsNaN(v) && v != 0 {
			first = v
			break
		}
	}
	for i, v := range xs {
		out[i] = v / first * base
	}
	return out
}

// lineChart renders one line per series over shared dates. Missing points are
// carried forward so the renderer never sees NaN.
func lineChart(title, subtitle string, dates []time.Time, names []string, values [][]float64) ([]byte, error) {
	if len(dates) < 2 {
		return nil, errors.New("not enough data points")
	}
	key := chartKey(title, names, dates, values)
	if img, ok := chartGet(key); ok {
		return img, nil
	}

	var yMin, yMax float64
	seen := false
	clean := make([][]float64, len(values))
	for k, vs := range values {
		clean[k] = carryForward(vs)
		for _, v := range clean[k] {
			if math.IsNaN(v) {
				continue
			}
			if !seen || v < yMin {
				yMin = v
			}
			if !seen || v > yMax {
				yMax = v
			}
			seen = true
		}
	}
	if !seen {
		return nil, ErrNoData
	}
	pad := (yMax - yMin) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(yMax)*0.05, 1e-6)
	}
	yMin -= pad
	yMax += pad

	split := 6
	if len(dates) <= 30 {
		split = max(len(dates)/3, 3)
	}

	seriesList := charts.NewSeriesListDataFromValues(clean, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: dateLabels(dates), BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	img, err := painter.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	chartSet(key, img)
	chartLog.Debug().Str("title", title).Int("points", len(dates)).Int("series", len(names)).Msg("charts: rendered")
	return img, nil
}

// carryForward replaces NaN with the previous value, and leading NaN with the
// first present one.
func carryForward(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	last := math.NaN()
	for _, v := range out {
		if !math.IsNaN(v) {
			last = v
			break
		}
	}
	for i, v := range out {
		if math.IsNaN(v) {
			out[i] = last
			continue
		}
		last = v
	}
	return out
}

func chartKey(title string, names []string, dates []time.Time, values [][]float64) string {
	sum := 0.0
	for _, vs := range values {
		for _, v := range vs {
			if !math.IsNaN(v) {
				sum += v
			}
		}
	}
	return fmt.Sprintf("%s|%s|%d|%d|%d|%.10g", title, strings.Join(names, ","), len(dates),
		dates[0].Unix(), dates[len(dates)-1].Unix(), sum)
}
