// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package report

import (
	"fmt"
	"io"

	"github.com/2dChan/r2voronoi/arena"
	"github.com/2dChan/r2voronoi/dispersion"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// RegionCollection returns the arena and the regions of rec as a feature
// collection. The arena feature comes first, then one feature per region
// in robot order.
func RegionCollection(shape *arena.Shape, rec dispersion.TickRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	af := geojson.NewFeature(shape.Polygon())
	af.Properties["kind"] = "arena"
	af.Properties["shape"] = shape.Kind().String()
	af.Properties["area"] = shape.Area()
	fc.Append(af)

	outside := make(map[int]bool, len(rec.Outside))
	for _, i := range rec.Outside {
		outside[i] = true
	}
	for i := range rec.Diagram.NumCells() {
		cell, _ := rec.Diagram.Cell(i)
		site := cell.Site()

		f := geojson.NewFeature(cell.Polygon())
		f.Properties["kind"] = "region"
		f.Properties["tick"] = rec.Tick
		f.Properties["region"] = i
		f.Properties["area"] = rec.Areas[i]
		f.Properties["deviation"] = rec.Deviations[i]
		f.Properties["site"] = orb.Point{site.X, site.Y}
		f.Properties["outside"] = outside[i]
		fc.Append(f)
	}
	return fc
}

// WriteRegions writes RegionCollection(shape, rec) as GeoJSON.
func WriteRegions(w io.Writer, shape *arena.Shape, rec dispersion.TickRecord) error {
	data, err := RegionCollection(shape, rec).MarshalJSON()
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
