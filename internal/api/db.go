package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"
)

// DBHandler exposes entity database diagnostics.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler creates a new database handler.
func NewDBHandler(db *sql.DB) *DBHandler {
	return &DBHandler{db: db}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/db/tables", h.ListTables, huma.OperationTags("db"))
	huma.Get(api, "/api/v1/db/stats", h.Stats, huma.OperationTags("db"))
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			tables = append(tables, name)
		}
	}

	if tables == nil {
		tables = []string{}
	}

	out := &TablesOutput{}
	out.Body.Tables = tables
	return out, nil
}

// StatsOutput is the response for entity store statistics.
type StatsOutput struct {
	Body struct {
		Counts map[string]int `json:"counts" doc:"Stored entity count per kind"`
		Total  int            `json:"total" doc:"Total stored entities"`
	}
}

// Stats returns stored entity counts per kind.
func (h *DBHandler) Stats(ctx context.Context, input *struct{}) (*StatsOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM entities GROUP BY kind")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to count entities", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	total := 0
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err == nil {
			counts[kind] = n
			total += n
		}
	}

	out := &StatsOutput{}
	out.Body.Counts = counts
	out.Body.Total = total
	return out, nil
}
