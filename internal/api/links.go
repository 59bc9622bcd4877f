package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/map>; rel="map"`,
		`</api/v1/db/stats>; rel="stats"`,
	},
	"/api/v1/map": {
		`</api/v1/map/mode>; rel="mode"`,
		`</api/v1/map/language>; rel="language"`,
		`</api/v1/map/selection>; rel="selection"`,
		`</api/v1/map/stream>; rel="stream"`,
	},
	"/api/v1/map/selection": {
		`</api/v1/map>; rel="map"`,
	},
	"/api/v1/entities/{kind}": {
		`</api/v1/map/selection>; rel="selection"`,
	},
	"/api/v1/entities/{kind}/{id}": {
		`</api/v1/map/selection>; rel="selection"`,
	},
	"/api/v1/db/tables": {
		`</api/v1/db/stats>; rel="stats"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		return v, nil
	}
}
