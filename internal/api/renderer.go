package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/nomadatlas/mapcore/internal/bridge"
	"github.com/nomadatlas/mapcore/internal/render"
)

// RendererHandler receives events the browser renderer posts back: style load
// results, camera moves and click hits. Each event feeds the bridge mirror.
type RendererHandler struct {
	bridge *bridge.Renderer
}

func NewRendererHandler(b *bridge.Renderer) *RendererHandler {
	return &RendererHandler{bridge: b}
}

func (h *RendererHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/renderer/events", h.PostEvent, huma.OperationTags("renderer"))
	huma.Post(api, "/api/v1/renderer/click", h.PostClick, huma.OperationTags("renderer"))
}

type RendererEventBody struct {
	Event  string    `json:"event" enum:"style.load,style.error,viewport.move" doc:"Renderer event type"`
	Reason string    `json:"reason,omitempty" doc:"Error description for style.error"`
	Center []float64 `json:"center,omitempty" doc:"Camera center [lng, lat] for viewport.move"`
	Zoom   float64   `json:"zoom,omitempty" doc:"Camera zoom for viewport.move"`
}

type ClickBody struct {
	Lng      float64          `json:"lng" doc:"Clicked longitude"`
	Lat      float64          `json:"lat" doc:"Clicked latitude"`
	Features []render.Feature `json:"features" doc:"Rendered features under the click, most specific first"`
}

func (h *RendererHandler) PostEvent(ctx context.Context, input *struct{ Body RendererEventBody }) (*struct{ Body MessageBody }, error) {
	switch input.Body.Event {
	case "style.load":
		h.bridge.StyleLoaded()
	case "style.error":
		h.bridge.StyleFailed(input.Body.Reason)
	case "viewport.move":
		if len(input.Body.Center) != 2 {
			return nil, huma.Error400BadRequest("viewport.move requires center [lng, lat]")
		}
		h.bridge.ViewportMoved(render.Viewport{
			Center: orb.Point{input.Body.Center[0], input.Body.Center[1]},
			Zoom:   input.Body.Zoom,
		})
	default:
		return nil, huma.Error400BadRequest("unknown renderer event: " + input.Body.Event)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "ok"}}, nil
}

func (h *RendererHandler) PostClick(ctx context.Context, input *struct{ Body ClickBody }) (*struct{ Body MessageBody }, error) {
	h.bridge.Click(orb.Point{input.Body.Lng, input.Body.Lat}, input.Body.Features)
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "ok"}}, nil
}
