package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/routetrace/mapmatch/internal/roadgraph"
)

func TestSaveAndLoadLinkGeometry(t *testing.T) {
	db := setupTestDB(t)
	edge := roadgraph.DirectedEdge{U: "a", V: "b"}
	geometry := []roadgraph.Point{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 100, Y: 0}}

	require.NoError(t, db.SaveLinkGeometry(edge, geometry, 2))

	loaded, roadClass, ok, err := db.LoadLinkGeometry(edge)
	require.NoError(t, err)
	require.True(t, ok, "expected cached geometry to be found")
	require.Equal(t, 2, roadClass)
	if diff := cmp.Diff(geometry, loaded); diff != "" {
		t.Fatalf("geometry round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadLinkGeometryMissing(t *testing.T) {
	db := setupTestDB(t)
	_, _, ok, err := db.LoadLinkGeometry(roadgraph.DirectedEdge{U: "x", V: "y"})
	require.NoError(t, err)
	require.False(t, ok, "expected no cached geometry for an unknown edge")
}

func TestSaveLinkGeometryUpdatesExisting(t *testing.T) {
	db := setupTestDB(t)
	edge := roadgraph.DirectedEdge{U: "a", V: "b"}

	require.NoError(t, db.SaveLinkGeometry(edge, []roadgraph.Point{{X: 0, Y: 0}}, 1), "initial SaveLinkGeometry failed")
	require.NoError(t, db.SaveLinkGeometry(edge, []roadgraph.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}, 3), "updating SaveLinkGeometry failed")

	loaded, roadClass, ok, err := db.LoadLinkGeometry(edge)
	require.NoError(t, err)
	require.True(t, ok, "expected cached geometry to be found")
	require.Equal(t, 3, roadClass, "expected updated road class")
	require.Len(t, loaded, 2, "expected updated geometry with 2 points")
}
