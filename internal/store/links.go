package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/routetrace/mapmatch/internal/roadgraph"
)

// SaveLinkGeometry caches an edge's polyline and road class so a repeated
// run against the same graph can skip re-deriving it from the source road
// network.
func (db *DB) SaveLinkGeometry(edge roadgraph.DirectedEdge, geometry []roadgraph.Point, roadClass int) error {
	geomJSON, err := json.Marshal(geometry)
	if err != nil {
		return fmt.Errorf("store: failed to marshal link geometry: %w", err)
	}
	_, err = db.Exec(
		`INSERT INTO link_geometry (edge_u, edge_v, geometry_json, road_class) VALUES (?, ?, ?, ?)
		 ON CONFLICT(edge_u, edge_v) DO UPDATE SET geometry_json = excluded.geometry_json, road_class = excluded.road_class`,
		edge.U, edge.V, string(geomJSON), roadClass,
	)
	if err != nil {
		return fmt.Errorf("store: failed to insert link_geometry: %w", err)
	}
	return nil
}

// LoadLinkGeometry returns the cached geometry and road class for edge, or
// ok == false if nothing is cached.
func (db *DB) LoadLinkGeometry(edge roadgraph.DirectedEdge) (geometry []roadgraph.Point, roadClass int, ok bool, err error) {
	var geomJSON string
	row := db.QueryRow(`SELECT geometry_json, road_class FROM link_geometry WHERE edge_u = ? AND edge_v = ?`, edge.U, edge.V)
	if scanErr := row.Scan(&geomJSON, &roadClass); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, 0, false, nil
		}
		return nil, 0, false, fmt.Errorf("store: failed to query link_geometry: %w", scanErr)
	}
	if err := json.Unmarshal([]byte(geomJSON), &geometry); err != nil {
		return nil, 0, false, fmt.Errorf("store: failed to unmarshal link geometry: %w", err)
	}
	return geometry, roadClass, true, nil
}
