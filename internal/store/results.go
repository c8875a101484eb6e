package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/routetrace/mapmatch/internal/matchengine"
	"github.com/routetrace/mapmatch/internal/pathfmt"
	"github.com/routetrace/mapmatch/internal/roadgraph"
)

// SaveResult persists one matching Result: a matched_trajectory row and,
// when the trajectory matched successfully, its ordered matched_segment
// rows. matchedAtUnixNanos is supplied by the caller since this package
// never reads the clock itself.
func (db *DB) SaveResult(result matchengine.Result, matchedAtUnixNanos int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var errText sql.NullString
	if result.Err != nil {
		errText = sql.NullString{String: result.Err.Error(), Valid: true}
	}

	if _, err := tx.Exec(
		`INSERT INTO matched_trajectory (trajectory_id, matched_at_unix_nanos, error) VALUES (?, ?, ?)
		 ON CONFLICT(trajectory_id) DO UPDATE SET matched_at_unix_nanos = excluded.matched_at_unix_nanos, error = excluded.error`,
		result.TrajectoryID, matchedAtUnixNanos, errText,
	); err != nil {
		return fmt.Errorf("store: failed to insert matched_trajectory: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM matched_segment WHERE trajectory_id = ?`, result.TrajectoryID); err != nil {
		return fmt.Errorf("store: failed to clear prior segments: %w", err)
	}

	for seq, seg := range result.Segments {
		geomJSON, err := json.Marshal(seg.Geometry)
		if err != nil {
			return fmt.Errorf("store: failed to marshal segment geometry: %w", err)
		}
		var edgeU, edgeV sql.NullString
		if seg.Edge != nil {
			edgeU = sql.NullString{String: seg.Edge.U, Valid: true}
			edgeV = sql.NullString{String: seg.Edge.V, Valid: true}
		}
		if _, err := tx.Exec(
			`INSERT INTO matched_segment (
				trajectory_id, seq, edge_u, edge_v, geometry_json,
				begin_projection, begin_at_endpoint, begin_state_index,
				end_projection, end_at_endpoint, end_state_index
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.TrajectoryID, seq, edgeU, edgeV, string(geomJSON),
			nullableFloat(seg.Begin.Projection), seg.Begin.AtEndpoint, seg.Begin.StateIndex,
			nullableFloat(seg.End.Projection), seg.End.AtEndpoint, seg.End.StateIndex,
		); err != nil {
			return fmt.Errorf("store: failed to insert matched_segment %d: %w", seq, err)
		}
	}

	return tx.Commit()
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// LoadSegments returns the ordered matched segments previously saved for
// trajectoryID, or a nil slice if nothing was saved.
func (db *DB) LoadSegments(trajectoryID string) ([]pathfmt.MatchedSegment, error) {
	rows, err := db.Query(
		`SELECT edge_u, edge_v, geometry_json, begin_projection, begin_at_endpoint, begin_state_index,
		        end_projection, end_at_endpoint, end_state_index
		 FROM matched_segment WHERE trajectory_id = ? ORDER BY seq`,
		trajectoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query matched_segment: %w", err)
	}
	defer rows.Close()

	var out []pathfmt.MatchedSegment
	for rows.Next() {
		var edgeU, edgeV sql.NullString
		var geomJSON string
		var beginProj, endProj sql.NullFloat64
		var beginAtEndpoint, endAtEndpoint bool
		var beginIdx, endIdx int

		if err := rows.Scan(&edgeU, &edgeV, &geomJSON, &beginProj, &beginAtEndpoint, &beginIdx, &endProj, &endAtEndpoint, &endIdx); err != nil {
			return nil, fmt.Errorf("store: failed to scan matched_segment row: %w", err)
		}

		var geometry []roadgraph.Point
		if err := json.Unmarshal([]byte(geomJSON), &geometry); err != nil {
			return nil, fmt.Errorf("store: failed to unmarshal segment geometry: %w", err)
		}

		seg := pathfmt.MatchedSegment{
			Geometry: geometry,
			Begin:    pathfmt.Bound{AtEndpoint: beginAtEndpoint, StateIndex: beginIdx},
			End:      pathfmt.Bound{AtEndpoint: endAtEndpoint, StateIndex: endIdx},
		}
		if edgeU.Valid && edgeV.Valid {
			seg.Edge = &roadgraph.DirectedEdge{U: edgeU.String, V: edgeV.String}
		}
		if beginProj.Valid {
			v := beginProj.Float64
			seg.Begin.Projection = &v
		}
		if endProj.Valid {
			v := endProj.Float64
			seg.End.Projection = &v
		}
		out = append(out, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: failed to iterate matched_segment rows: %w", err)
	}
	return out, nil
}
