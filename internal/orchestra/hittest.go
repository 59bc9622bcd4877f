package orchestra

import (
	"fmt"

	"github.com/nomadatlas/mapcore/internal/render"
)

// hitRule binds an entity kind to its source layer and the attribute names
// carrying its id, most canonical first. Route is the only kind where a
// document id and a human-readable code coexist; the document id wins.
type hitRule struct {
	kind        Kind
	sourceLayer string
	idProps     []string
}

// hitPriority orders kinds smallest/most specific target first, so a click on
// overlapping features always resolves to the hardest thing to hit.
var hitPriority = []hitRule{
	{KindBorderPost, srcLayerPosts, []string{"doc_id"}},
	{KindZone, srcLayerZones, []string{"doc_id"}},
	{KindRoute, srcLayerRoutes, []string{"route_id", "name"}},
	{KindBorder, srcLayerBorders, []string{"doc_id"}},
	{KindCountry, srcLayerCountries, []string{"adm0_a3", "iso_a3"}},
}

// ResolveHit picks at most one entity from the features under a click point.
// The second return is false when no candidate matches, which the caller
// treats as "clear selection".
func ResolveHit(features []render.Feature) (Entity, render.Feature, bool) {
	for _, rule := range hitPriority {
		for _, f := range features {
			if f.SourceLayer != rule.sourceLayer {
				continue
			}
			if id := featureID(f, rule.idProps); id != "" {
				return Entity{Kind: rule.kind, ID: id}, f, true
			}
		}
	}
	return Entity{}, render.Feature{}, false
}

// featureID reads the first present id attribute. Tile attributes may carry
// ids as strings or numbers.
func featureID(f render.Feature, props []string) string {
	for _, key := range props {
		v, ok := f.Properties[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return fmt.Sprintf("%.0f", t)
		case int:
			return fmt.Sprintf("%d", t)
		}
	}
	return ""
}
