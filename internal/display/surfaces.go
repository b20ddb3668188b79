// Package display turns the shared view into what the map, the table,
// the banner and the footer show. Everything here is a pure function of
// models.View; an empty snapshot yields empty slices.
package display

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fish-tracker/backend/internal/models"
)

// Map defaults: Halifax, Nova Scotia.
const (
	DefaultCenterLat   = 44.692661
	DefaultCenterLon   = -63.639532
	DefaultZoom        = 14
	DefaultTileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
)

// FooterPrefix precedes the last update time.
const FooterPrefix = "Map data updates automatically. Last update: "

// BannerTitle is the bold lead of the error banner.
const BannerTitle = "Error: "

// MapSettings is the base map the markers sit on.
type MapSettings struct {
	Center      models.Location `json:"center"`
	Zoom        int             `json:"zoom"`
	TileURL     string          `json:"tileUrl"`
	Attribution string          `json:"attribution"`
}

// DefaultMapSettings centres the map on Halifax.
func DefaultMapSettings() MapSettings {
	return MapSettings{
		Center:      models.Location{Latitude: DefaultCenterLat, Longitude: DefaultCenterLon},
		Zoom:        DefaultZoom,
		TileURL:     DefaultTileURL,
		Attribution: DefaultAttribution,
	}
}

// Marker is one map pin with its popup text.
type Marker struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Title     string  `json:"title"`
	Weight    string  `json:"weight"`
	Tracker   string  `json:"tracker"`
	Color     string  `json:"color"`
}

// TableRow is one line of the fish table.
type TableRow struct {
	ID           string `json:"id"`
	Species      string `json:"species"`
	TrackingInfo string `json:"trackingInfo"`
	Weight       string `json:"weight"`
	Location     string `json:"location"`
}

// Banner is shown above the data while the status is degraded.
type Banner struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// MapMarkers builds one marker per fish with a plottable location.
func MapMarkers(v models.View, legend *Legend) []Marker {
	markers := make([]Marker, 0, len(v.Snapshot.Entities))
	for _, f := range v.Snapshot.Entities {
		if !f.Location.Valid() {
			continue
		}
		markers = append(markers, Marker{
			ID:        f.ID,
			Latitude:  f.Location.Latitude,
			Longitude: f.Location.Longitude,
			Title:     f.Species,
			Weight:    fmt.Sprintf("%.2f kg", f.WeightKG),
			Tracker:   f.TrackingInfo,
			Color:     legend.ColorFor(f.Species),
		})
	}
	return markers
}

// TableRows lists every fish in arrival order.
func TableRows(v models.View) []TableRow {
	rows := make([]TableRow, 0, len(v.Snapshot.Entities))
	for _, f := range v.Snapshot.Entities {
		rows = append(rows, TableRow{
			ID:           f.ID,
			Species:      f.Species,
			TrackingInfo: f.TrackingInfo,
			Weight:       strconv.FormatFloat(f.WeightKG, 'f', -1, 64),
			Location:     fmt.Sprintf("%.4f, %.4f", f.Location.Latitude, f.Location.Longitude),
		})
	}
	return rows
}

// BannerFor returns nil while healthy.
func BannerFor(v models.View) *Banner {
	if !v.Status.IsDegraded() {
		return nil
	}
	return &Banner{Title: BannerTitle, Message: v.Status.Reason}
}

// Footer shows the last successful sync as local wall-clock time.
func Footer(v models.View, loc *time.Location) string {
	t := v.LastSync
	if loc != nil {
		t = t.In(loc)
	}
	return FooterPrefix + t.Format("15:04:05")
}

// Page is everything the page renders for one view.
type Page struct {
	SessionID string        `json:"sessionId"`
	Revision  uint64        `json:"revision"`
	Map       MapSettings   `json:"map"`
	Markers   []Marker      `json:"markers"`
	Rows      []TableRow    `json:"rows"`
	Banner    *Banner       `json:"banner"`
	Footer    string        `json:"footer"`
	Legend    []LegendEntry `json:"legend"`
}

// LegendEntry is one colour swatch under the map.
type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Renderer bundles the static inputs of the display surfaces.
type Renderer struct {
	Map      MapSettings
	Legend   *Legend
	Location *time.Location
}

// Render builds the full page model for v.
func (r Renderer) Render(v models.View) Page {
	return Page{
		SessionID: v.SessionID,
		Revision:  v.Revision,
		Map:       r.Map,
		Markers:   MapMarkers(v, r.Legend),
		Rows:      TableRows(v),
		Banner:    BannerFor(v),
		Footer:    Footer(v, r.Location),
		Legend:    legendEntries(r.Legend),
	}
}

func legendEntries(l *Legend) []LegendEntry {
	rules := l.Entries()
	out := make([]LegendEntry, 0, len(rules))
	for _, rule := range rules {
		label := rule.Label
		if label == "" {
			label = rule.Pattern
		}
		out = append(out, LegendEntry{Label: label, Color: rule.Color})
	}
	return out
}
