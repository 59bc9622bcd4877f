package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/nomadatlas/mapcore/internal/api"
	"github.com/nomadatlas/mapcore/internal/bridge"
	"github.com/nomadatlas/mapcore/internal/config"
	"github.com/nomadatlas/mapcore/internal/db"
	"github.com/nomadatlas/mapcore/internal/orchestra"
	"github.com/nomadatlas/mapcore/internal/render"
	"github.com/nomadatlas/mapcore/internal/service"
	"github.com/nomadatlas/mapcore/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // Path to web/ directory for static files and templates
}

// Server is the atlas HTTP server. It owns the single viewer session: one
// bridge renderer, one orchestrator, one event bus.
type Server struct {
	config   Config
	conf     config.Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	bridge   *bridge.Renderer
	orch     *orchestra.Orchestrator
	bus      *service.EventBus
	entity   *service.EntityService
	renderer *templates.Renderer
}

// New creates a new atlas server.
func New(cfg Config) *Server {
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("nomad-atlas API", "1.0.0")
	humaConfig.Info.Description = "Map mode and highlight orchestration API for the travel atlas viewer."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	conf, err := config.Load(filepath.Join(cfg.DataDir, "atlas.yaml"))
	if err != nil {
		log.Printf("config: %v (using defaults)", err)
	}

	s := &Server{
		config:  cfg,
		conf:    conf,
		mux:     mux,
		humaAPI: humaAPI,
		bus:     service.NewEventBus(),
		bridge:  bridge.NewRenderer(),
	}

	// Initialize DuckDB connection for entity metadata
	conn, err := db.Get(db.Config{
		DataDir: cfg.DataDir,
		DBName:  "atlas",
	})
	if err != nil {
		log.Printf("db: %v", err)
	} else {
		s.db = conn
		if svc, err := service.NewEntityService(conn); err == nil {
			s.entity = svc
		} else {
			log.Printf("entity service: %v", err)
		}
	}

	// Initialize template renderer for stream fragment patches
	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		if r, err := templates.New(fragmentsDir); err == nil {
			s.renderer = r
			fmt.Printf("Loaded fragment templates from %s\n", fragmentsDir)
		}
	}

	initial, err := orchestra.ParseMode(conf.DefaultMode)
	if err != nil {
		log.Printf("config: %v (starting in %s)", err, orchestra.ModeStatus)
		initial = orchestra.ModeStatus
	}

	s.orch = orchestra.New(s.bridge, orchestra.Config{
		Resources: orchestra.ResourceConfig{
			SourceURL:  conf.Source.URL,
			TerrainURL: conf.Source.TerrainURL,
		},
		StyleURL:       conf.StyleURL,
		InitialMode:    initial,
		Language:       conf.DefaultLanguage,
		DebounceWindow: time.Duration(conf.DebounceMS) * time.Millisecond,
	}, orchestra.Callbacks{
		EntityClicked: func(e orchestra.Entity, f render.Feature) {
			s.bus.Publish(service.Event{Topic: service.TopicSelection, Kind: string(e.Kind), ID: e.ID})
		},
		SelectionCleared: func() {
			s.bus.Publish(service.Event{Topic: service.TopicSelectionCleared})
		},
		ModeChanged: func(m orchestra.Mode) {
			s.bus.Publish(service.Event{Topic: service.TopicMode, Mode: m.String()})
		},
		TransitionFailed: func(target orchestra.Mode, err error) {
			s.bus.Publish(service.Event{
				Topic:  service.TopicTransitionFailed,
				Mode:   target.String(),
				Reason: err.Error(),
			})
		},
	})

	// A browser page refresh produces a style load nothing requested; the
	// orchestrator rebuilds the resource set on top of the fresh style.
	s.bridge.OnUnexpectedReload(s.orch.Refresh)

	s.routes()
	return s
}

// Start schedules the initial map load. Call before serving.
func (s *Server) Start() {
	s.orch.Start()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

// OpenAPI returns the generated API description for the spec subcommand.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, &api.Services{
		Map:       s.orch,
		Entity:    s.entity,
		Bus:       s.bus,
		Languages: s.conf.Languages,
	})

	// Renderer event sink and the viewer SSE stream
	api.NewRendererHandler(s.bridge).RegisterRoutes(s.humaAPI)
	api.NewStreamHandler(s.bridge, s.bus, s.entity, s.renderer).RegisterRoutes(s.humaAPI)

	// Entity database diagnostics
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Style documents and tiles are plain files under the data dir. Styles
	// come per language ("base-en.json", "climate-ru.json", ...).
	stylesDir := filepath.Join(s.config.DataDir, "styles")
	s.mux.Handle("/styles/", http.StripPrefix("/styles/", http.FileServer(http.Dir(stylesDir))))

	tilesDir := filepath.Join(s.config.DataDir, "tiles")
	s.mux.Handle("/tiles/", http.StripPrefix("/tiles/", s.handleTiles(tilesDir)))

	// Static files
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	// Page routes
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"service":  "nomad-atlas",
		"status":   "running",
		"mode":     s.orch.Mode().String(),
		"language": s.orch.Language(),
		"db":       s.db != nil,
	})
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	templatePath := filepath.Join(s.config.WebDir, "templates", "viewer.html")
	http.ServeFile(w, r, templatePath)
}

// handleTiles serves PMTiles archives with the CORS and range headers the
// browser pmtiles client needs.
func (s *Server) handleTiles(tilesDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.FileServer(http.Dir(tilesDir)).ServeHTTP(w, r)
	})
}
