// Package service loads the datasets the viewer serves.
package service

// DatasetInfo describes a loaded dataset for the REST API.
type DatasetInfo struct {
	ID          string    `json:"id" doc:"Dataset identifier" example:"trees"`
	Backend     string    `json:"backend" enum:"inline,tiled" doc:"How the dataset reaches the map" example:"inline"`
	URL         string    `json:"url,omitempty" doc:"Archive URL of a tiled dataset" example:"pmtiles:///tiles/trees.pmtiles"`
	SourceLayer string    `json:"sourceLayer,omitempty" doc:"Layer inside the tile archive" example:"trees"`
	Features    int       `json:"features" doc:"Features held in memory, -1 for tiled datasets" example:"1200"`
	Bounds      []float64 `json:"bounds,omitempty" doc:"Extent as [minLon, minLat, maxLon, maxLat]"`
}

// TileFile is a tile archive under the tiles directory.
type TileFile struct {
	Name    string    `json:"name" doc:"File name" example:"trees.pmtiles"`
	Size    string    `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	MinZoom int       `json:"minZoom" doc:"Lowest zoom level in the archive"`
	MaxZoom int       `json:"maxZoom" doc:"Highest zoom level in the archive"`
	Bounds  []float64 `json:"bounds,omitempty" doc:"Extent from the archive header"`
}
