package report

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/vire-recon/internal/models"
)

// bucketColors keeps each bucket on the same colour across charts
var bucketColors = map[models.Bucket]drawing.Color{
	models.BucketDCPension:   drawing.ColorFromHex("7c3aed"), // violet-600
	models.BucketRRSP:        drawing.ColorFromHex("db2777"), // pink-600
	models.BucketEquity:      drawing.ColorFromHex("2563eb"), // blue-600
	models.BucketFixedIncome: drawing.ColorFromHex("059669"), // emerald-600
	models.BucketCash:        drawing.ColorFromHex("9ca3af"), // gray-400
	models.BucketRealEstate:  drawing.ColorFromHex("d97706"), // amber-600
}

// RenderAllocationChart renders a PNG pie of the adjusted bucket totals.
// Buckets with no positive value are left out; a snapshot with nothing to
// plot is an error.
func RenderAllocationChart(snapshot *models.Snapshot) ([]byte, error) {
	total := decimal.Zero
	for _, b := range models.AllBuckets() {
		if v := snapshot.BucketTotal(b); v.IsPositive() {
			total = total.Add(v)
		}
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("snapshot %s has no positive bucket totals to chart", snapshot.ID)
	}

	var values []chart.Value
	for _, b := range models.AllBuckets() {
		v := snapshot.BucketTotal(b)
		if !v.IsPositive() {
			continue
		}
		f, _ := v.Float64()
		pct := v.Div(total).Mul(decimal.NewFromInt(100))
		values = append(values, chart.Value{
			Value: f,
			Label: fmt.Sprintf("%s %s%%", b, pct.StringFixed(1)),
			Style: chart.Style{
				FillColor:   bucketColors[b],
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
			},
		})
	}

	graph := chart.PieChart{
		Title:  fmt.Sprintf("Allocation %s", snapshot.SnapshotRef),
		Width:  640,
		Height: 640,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		Values: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
