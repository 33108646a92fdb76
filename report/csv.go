// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/2dChan/r2voronoi/dispersion"
)

// WriteAreas writes the region areas of every tick, one row per tick:
// Tick, Region0, ..., RegionN-1.
func WriteAreas(w io.Writer, res *dispersion.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(res.NumRobots(), "Tick")); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	for _, rec := range res.Records {
		row := make([]string, 0, len(rec.Areas)+1)
		row = append(row, strconv.FormatInt(rec.Tick, 10))
		row = appendFloats(row, rec.Areas)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	return flush(cw)
}

// WriteDeviations writes the deviation of every region from the reference
// area: Tick, AreaPerBot, AreaRef, Region0, ..., RegionN-1.
// With legacy set the AreaRef column holds the reference area of the last
// tick on every row; deviations stay relative to their own tick.
func WriteDeviations(w io.Writer, res *dispersion.Result, areaPerBot float64, legacy bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(res.NumRobots(), "Tick", "AreaPerBot", "AreaRef")); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	for _, rec := range res.Records {
		areaRef := rec.AreaRef
		if legacy {
			areaRef = res.LegacyAreaRef()
		}
		row := make([]string, 0, len(rec.Deviations)+3)
		row = append(row, strconv.FormatInt(rec.Tick, 10), formatFloat(areaPerBot), formatFloat(areaRef))
		row = appendFloats(row, rec.Deviations)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	return flush(cw)
}

// WriteSigma writes the sigma series: Tick, Sigma.
func WriteSigma(w io.Writer, series dispersion.SigmaSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Tick", "Sigma"}); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	for _, p := range series {
		if err := cw.Write([]string{strconv.FormatInt(p.Tick, 10), formatFloat(p.Sigma)}); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	return flush(cw)
}

func header(regions int, leading ...string) []string {
	out := append(make([]string, 0, len(leading)+regions), leading...)
	for i := range regions {
		out = append(out, "Region"+strconv.Itoa(i))
	}
	return out
}

func appendFloats(row []string, values []float64) []string {
	for _, v := range values {
		row = append(row, formatFloat(v))
	}
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func flush(cw *csv.Writer) error {
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
