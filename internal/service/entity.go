package service

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// EntityService stores entity metadata in DuckDB and answers lookup and
// bounds queries for the API and zoom-to-selection.
type EntityService struct {
	db *sql.DB
}

// NewEntityService creates the service and ensures its schema exists.
func NewEntityService(db *sql.DB) (*EntityService, error) {
	s := &EntityService{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *EntityService) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS entities (
			kind     VARCHAR NOT NULL,
			id       VARCHAR NOT NULL,
			name     VARCHAR NOT NULL DEFAULT '',
			status   INTEGER NOT NULL DEFAULT 0,
			document INTEGER NOT NULL DEFAULT 0,
			min_lon  DOUBLE NOT NULL,
			min_lat  DOUBLE NOT NULL,
			max_lon  DOUBLE NOT NULL,
			max_lat  DOUBLE NOT NULL,
			PRIMARY KEY (kind, id)
		)`)
	if err != nil {
		return fmt.Errorf("create entities table: %w", err)
	}
	return nil
}

// ImportGeoJSON loads entity features from a GeoJSON file inside the sources
// directory. Each feature needs "kind" and "id" properties; name and code
// properties are optional. Bounds come from the geometry. Existing rows are
// replaced.
func (s *EntityService) ImportGeoJSON(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %q: %w", filepath.Base(path), err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", filepath.Base(path), err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	count := 0
	for _, f := range fc.Features {
		kind := f.Properties.MustString("kind", "")
		id := f.Properties.MustString("id", "")
		if kind == "" || id == "" || f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO entities
				(kind, id, name, status, document, min_lon, min_lat, max_lon, max_lat)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			kind, id,
			f.Properties.MustString("name", ""),
			f.Properties.MustInt("status", 0),
			f.Properties.MustInt("document", 0),
			b.Min[0], b.Min[1], b.Max[0], b.Max[1],
		)
		if err != nil {
			return 0, fmt.Errorf("insert %s/%s: %w", kind, id, err)
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// Get returns one entity's metadata.
func (s *EntityService) Get(kind, id string) (EntityInfo, bool, error) {
	var e EntityInfo
	err := s.db.QueryRow(`
		SELECT kind, id, name, status, document, min_lon, min_lat, max_lon, max_lat
		FROM entities WHERE kind = ? AND id = ?`, kind, id).
		Scan(&e.Kind, &e.ID, &e.Name, &e.Status, &e.Document,
			&e.MinLon, &e.MinLat, &e.MaxLon, &e.MaxLat)
	if err == sql.ErrNoRows {
		return EntityInfo{}, false, nil
	}
	if err != nil {
		return EntityInfo{}, false, err
	}
	return e, true, nil
}

// List returns all entities of one kind.
func (s *EntityService) List(kind string) ([]EntityInfo, error) {
	rows, err := s.db.Query(`
		SELECT kind, id, name, status, document, min_lon, min_lat, max_lon, max_lat
		FROM entities WHERE kind = ? ORDER BY id`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EntityInfo
	for rows.Next() {
		var e EntityInfo
		if err := rows.Scan(&e.Kind, &e.ID, &e.Name, &e.Status, &e.Document,
			&e.MinLon, &e.MinLat, &e.MaxLon, &e.MaxLat); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Bounds returns the stored bounding box of an entity, for fit-to-selection.
func (s *EntityService) Bounds(kind, id string) (orb.Bound, bool, error) {
	e, ok, err := s.Get(kind, id)
	if err != nil || !ok {
		return orb.Bound{}, ok, err
	}
	return orb.Bound{
		Min: orb.Point{e.MinLon, e.MinLat},
		Max: orb.Point{e.MaxLon, e.MaxLat},
	}, true, nil
}
