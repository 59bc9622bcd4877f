// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nomadatlas/mapcore/internal/orchestra"
	"github.com/nomadatlas/mapcore/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Map       *orchestra.Orchestrator
	Entity    *service.EntityService
	Bus       *service.EventBus
	Languages []string
}

// Types

type KindInput struct {
	Kind string `path:"kind" enum:"country,border,border_post,zone,route" doc:"Entity kind"`
}

type KindIDInput struct {
	Kind string `path:"kind" enum:"country,border,border_post,zone,route" doc:"Entity kind"`
	ID   string `path:"id" doc:"Entity identifier" example:"KAZ"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type MapStateBody struct {
	Mode      string         `json:"mode" enum:"status,document,climate,route" doc:"Active map mode"`
	Language  string         `json:"language" doc:"Active style language" example:"en"`
	Selection *SelectionBody `json:"selection,omitempty" doc:"Current selection, if any"`
}

type ModeBody struct {
	Mode string `json:"mode" enum:"status,document,climate,route" doc:"Map mode to switch to"`
}

type LanguageBody struct {
	Language string `json:"language" doc:"Style language" example:"ru"`
}

type SelectionBody struct {
	Kind string `json:"kind" enum:"country,border,border_post,zone,route" doc:"Entity kind"`
	ID   string `json:"id" doc:"Entity identifier" example:"KAZ"`
}

type SelectInput struct {
	Body struct {
		SelectionBody
		Zoom bool `json:"zoom,omitempty" doc:"Fit the view to the entity bounds after selecting"`
	}
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every Register* method of the handler.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterMap registers map mode, language and selection routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map", h.GetMapState, huma.OperationTags("map"))
	huma.Put(api, "/api/v1/map/mode", h.PutMode, huma.OperationTags("map"))
	huma.Put(api, "/api/v1/map/language", h.PutLanguage, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/selection", h.GetSelection, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/selection", h.PostSelection, huma.OperationTags("map"))
	huma.Delete(api, "/api/v1/map/selection", h.DeleteSelection, huma.OperationTags("map"))
}

// RegisterEntities registers entity metadata lookup routes.
func (h *APIHandler) RegisterEntities(api huma.API) {
	huma.Get(api, "/api/v1/entities/{kind}", h.ListEntities, huma.OperationTags("entities"))
	huma.Get(api, "/api/v1/entities/{kind}/{id}", h.GetEntity, huma.OperationTags("entities"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetMapState(ctx context.Context, input *struct{}) (*struct{ Body MapStateBody }, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not available")
	}
	body := MapStateBody{
		Mode:     h.svc.Map.Mode().String(),
		Language: h.svc.Map.Language(),
	}
	if sel := h.svc.Map.Selected(); sel != nil {
		body.Selection = &SelectionBody{Kind: string(sel.Kind), ID: sel.ID}
	}
	return &struct{ Body MapStateBody }{Body: body}, nil
}

func (h *APIHandler) PutMode(ctx context.Context, input *struct{ Body ModeBody }) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not available")
	}
	mode, err := orchestra.ParseMode(input.Body.Mode)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	if err := h.svc.Map.SetMode(mode); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	// The transition is debounced; the mode event on the stream confirms it.
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Mode change scheduled"}}, nil
}

func (h *APIHandler) PutLanguage(ctx context.Context, input *struct{ Body LanguageBody }) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not available")
	}
	if !h.languageSupported(input.Body.Language) {
		return nil, huma.Error400BadRequest("unsupported language: " + input.Body.Language)
	}
	h.svc.Map.SetLanguage(input.Body.Language)
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Language change scheduled"}}, nil
}

func (h *APIHandler) languageSupported(lang string) bool {
	if len(h.svc.Languages) == 0 {
		return lang != ""
	}
	for _, l := range h.svc.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

func (h *APIHandler) GetSelection(ctx context.Context, input *struct{}) (*struct{ Body SelectionBody }, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not available")
	}
	sel := h.svc.Map.Selected()
	if sel == nil {
		return nil, huma.Error404NotFound("nothing selected")
	}
	return &struct{ Body SelectionBody }{Body: SelectionBody{Kind: string(sel.Kind), ID: sel.ID}}, nil
}

func (h *APIHandler) PostSelection(ctx context.Context, input *SelectInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not available")
	}
	ix := h.svc.Map.Interactions()
	var err error
	switch input.Body.Kind {
	case "country":
		err = ix.SelectCountry(input.Body.ID)
	case "border":
		err = ix.SelectBorder(input.Body.ID)
	case "border_post":
		err = ix.SelectBorderPost(input.Body.ID)
	case "zone":
		err = ix.SelectZone(input.Body.ID)
	case "route":
		err = ix.SelectRoute(input.Body.ID)
	default:
		return nil, huma.Error400BadRequest("unknown entity kind: " + input.Body.Kind)
	}
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	if input.Body.Zoom && h.svc.Entity != nil {
		if bound, ok, err := h.svc.Entity.Bounds(input.Body.Kind, input.Body.ID); err == nil && ok {
			ix.FitBounds(bound, 40)
		}
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Selected"}}, nil
}

func (h *APIHandler) DeleteSelection(ctx context.Context, input *struct{}) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not available")
	}
	h.svc.Map.Interactions().ClearSelection()
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Selection cleared"}}, nil
}

func (h *APIHandler) ListEntities(ctx context.Context, input *KindInput) (*struct{ Body []service.EntityInfo }, error) {
	if h.svc == nil || h.svc.Entity == nil {
		return &struct{ Body []service.EntityInfo }{Body: []service.EntityInfo{}}, nil
	}
	entities, err := h.svc.Entity.List(input.Kind)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	return &struct{ Body []service.EntityInfo }{Body: entities}, nil
}

func (h *APIHandler) GetEntity(ctx context.Context, input *KindIDInput) (*struct{ Body service.EntityInfo }, error) {
	if h.svc == nil || h.svc.Entity == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	info, ok, err := h.svc.Entity.Get(input.Kind, input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	if !ok {
		return nil, huma.Error404NotFound("entity not found")
	}
	return &struct{ Body service.EntityInfo }{Body: info}, nil
}
