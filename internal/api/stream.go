package api

import (
	"context"
	"log"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nomadatlas/mapcore/internal/bridge"
	"github.com/nomadatlas/mapcore/internal/service"
	"github.com/nomadatlas/mapcore/internal/templates"
)

// StreamHandler serves the single long-lived viewer stream. It forwards
// bridge renderer commands as custom events the viewer applies to MapLibre,
// and turns bus events into signal patches and info panel fragments.
type StreamHandler struct {
	bridge   *bridge.Renderer
	bus      *service.EventBus
	entity   *service.EntityService
	renderer *templates.Renderer
}

func NewStreamHandler(b *bridge.Renderer, bus *service.EventBus, entity *service.EntityService, renderer *templates.Renderer) *StreamHandler {
	return &StreamHandler{bridge: b, bus: bus, entity: entity, renderer: renderer}
}

func (h *StreamHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/map/stream", h.Stream, huma.OperationTags("map"))
}

func (h *StreamHandler) Stream(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSE(humaCtx)
			events := h.bus.Subscribe()
			defer h.bus.Unsubscribe(events)

			for {
				select {
				case <-ctx.Done():
					return
				case cmd := <-h.bridge.Commands():
					sse.DispatchCustomEvent("map-command", map[string]any{
						"op":   cmd.Op,
						"args": cmd.Args,
					})
				case ev := <-events:
					h.handleEvent(sse, ev)
				}
			}
		},
	}, nil
}

func (h *StreamHandler) handleEvent(sse SSE, ev service.Event) {
	switch ev.Topic {
	case service.TopicMode:
		sse.Signals(map[string]any{"mode": ev.Mode})
	case service.TopicSelection:
		sse.Signals(map[string]any{"selectedKind": ev.Kind, "selectedId": ev.ID})
		h.patchInfoPanel(sse, ev.Kind, ev.ID)
	case service.TopicSelectionCleared:
		sse.Signals(map[string]any{"selectedKind": "", "selectedId": ""})
		if h.renderer != nil {
			html, err := h.renderer.Render("info-empty", nil)
			if err == nil {
				sse.Patch(html, "#info-panel")
			}
		}
	case service.TopicTransitionFailed:
		sse.Error(ev.Reason)
	}
}

func (h *StreamHandler) patchInfoPanel(sse SSE, kind, id string) {
	if h.renderer == nil || h.entity == nil {
		return
	}
	info, ok, err := h.entity.Get(kind, id)
	if err != nil {
		log.Printf("stream: entity lookup %s/%s: %v", kind, id, err)
		return
	}
	if !ok {
		// Tile features can reference entities with no stored metadata.
		info = service.EntityInfo{Kind: kind, ID: id, Name: id}
	}
	html, err := h.renderer.Render("info-panel", info)
	if err != nil {
		log.Printf("stream: render info panel: %v", err)
		return
	}
	sse.Patch(html, "#info-panel")
}
