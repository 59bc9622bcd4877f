// Package service contains the host-side business logic for the atlas map:
// entity metadata storage and the event fan-out feeding the viewer stream.
package service

// EntityInfo is the stored metadata for one selectable map object. Kind and
// ID mirror the orchestrator's entity reference; the codes drive the info
// panel, not the map paint (the map reads them from tile attributes).
type EntityInfo struct {
	Kind     string  `json:"kind" enum:"country,border,border_post,zone,route" doc:"Entity kind"`
	ID       string  `json:"id" doc:"Entity identifier (3-letter admin code for countries)" example:"KAZ"`
	Name     string  `json:"name" doc:"Display name" example:"Kazakhstan"`
	Status   int     `json:"status,omitempty" doc:"Legal/travel status code"`
	Document int     `json:"document,omitempty" doc:"Document-requirement code"`
	MinLon   float64 `json:"minLon" doc:"Bounding box west edge"`
	MinLat   float64 `json:"minLat" doc:"Bounding box south edge"`
	MaxLon   float64 `json:"maxLon" doc:"Bounding box east edge"`
	MaxLat   float64 `json:"maxLat" doc:"Bounding box north edge"`
}
