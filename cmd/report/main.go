// Command report renders an HTML timeline of a recorded run from the audit
// database: risk, effective collision time and mode confidence over time,
// with the issued actions.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/railguard/internal/audit"

	_ "modernc.org/sqlite"
)

func main() {
	var (
		dbPath  = flag.String("db", "railguard_audit.db", "audit database path")
		runID   = flag.String("run-id", "", "run to report on (default: most recent)")
		outPath = flag.String("out", "railguard_report.html", "output HTML file")
	)
	flag.Parse()

	store, err := audit.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("open audit store: %v", err)
	}
	defer store.Close()

	id := *runID
	if id == "" {
		runs, err := store.Runs()
		if err != nil {
			log.Fatalf("list runs: %v", err)
		}
		if len(runs) == 0 {
			log.Fatal("no runs in audit database")
		}
		id = runs[0]
	}

	frames, err := store.Frames(id)
	if err != nil {
		log.Fatalf("load frames: %v", err)
	}
	if len(frames) == 0 {
		log.Fatalf("run %s has no frames", id)
	}

	page := components.NewPage()
	page.PageTitle = "railguard run " + id
	page.AddCharts(
		riskChart(frames),
		ttcChart(frames),
		modeChart(frames),
	)

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		log.Fatalf("render report: %v", err)
	}
	log.Printf("wrote %s (%d frames, run %s)", *outPath, len(frames), id)
}

func timestamps(frames []*audit.FrameRecord) []string {
	xs := make([]string, len(frames))
	t0 := frames[0].TSUnixNanos
	for i, fr := range frames {
		xs[i] = fmt.Sprintf("%.2f", float64(fr.TSUnixNanos-t0)/1e9)
	}
	return xs
}

// riskChart plots max risk per frame with the critical threshold marked by
// the action annotations in the tooltip.
func riskChart(frames []*audit.FrameRecord) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Max risk", Subtitle: "per frame, with issued action"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "risk"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
	)

	risk := make([]opts.LineData, len(frames))
	for i, fr := range frames {
		risk[i] = opts.LineData{Value: fr.MaxRisk, Name: fr.Action}
	}
	line.SetXAxis(timestamps(frames)).
		AddSeries("max_risk", risk, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

// ttcChart plots the effective collision time, capped for display since the
// no-collision frames are unbounded.
func ttcChart(frames []*audit.FrameRecord) *charts.Line {
	const displayCap = 10.0

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Effective collision time", Subtitle: fmt.Sprintf("capped at %.0fs for display", displayCap)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: displayCap, Name: "seconds"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
	)

	eff := make([]opts.LineData, len(frames))
	for i, fr := range frames {
		v := fr.EffectiveTTC
		if math.IsInf(v, 1) || v > displayCap {
			v = displayCap
		}
		eff[i] = opts.LineData{Value: v, Name: fr.Action}
	}
	line.SetXAxis(timestamps(frames)).
		AddSeries("effective_ttc", eff)
	return line
}

// modeChart plots the smoothed mode confidence against the two thresholds.
func modeChart(frames []*audit.FrameRecord) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Mode confidence", Subtitle: "smoothed perception confidence and operating mode"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "confidence"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
	)

	conf := make([]opts.LineData, len(frames))
	pmiss := make([]opts.LineData, len(frames))
	for i, fr := range frames {
		conf[i] = opts.LineData{Value: fr.ModeConfidence, Name: fr.Mode}
		pmiss[i] = opts.LineData{Value: fr.PMiss, Name: fr.Mode}
	}
	line.SetXAxis(timestamps(frames)).
		AddSeries("confidence", conf, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)})).
		AddSeries("p_miss", pmiss)
	return line
}
