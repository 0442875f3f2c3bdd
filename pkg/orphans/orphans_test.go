package orphans

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/forgeops/anvil/pkg/log"
	"github.com/forgeops/anvil/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

type fakeDeleter struct {
	deletedExtents []int
	deletedTargets []int
	failExtent     map[int]bool
}

func (f *fakeDeleter) DeleteExtent(_ context.Context, id int) error {
	if f.failExtent[id] {
		return errors.New("delete refused")
	}
	f.deletedExtents = append(f.deletedExtents, id)
	return nil
}

func (f *fakeDeleter) DeleteTarget(_ context.Context, id int) error {
	f.deletedTargets = append(f.deletedTargets, id)
	return nil
}

// TestFind tests reachability-based orphan detection
func TestFind(t *testing.T) {
	extents := []types.Extent{{ID: 1}, {ID: 2}}
	targets := []types.Target{{ID: 1}, {ID: 7}}
	assocs := []types.Association{{ID: 10, TargetID: 1, ExtentID: 1, LUN: 0}}

	set := Find(extents, targets, assocs)

	assert.Equal(t, []int{2}, set.ExtentIDs)
	assert.Equal(t, []int{7}, set.TargetIDs)
}

// TestFindNoOrphans tests the fully referenced case
func TestFindNoOrphans(t *testing.T) {
	extents := []types.Extent{{ID: 1}}
	targets := []types.Target{{ID: 2}}
	assocs := []types.Association{{TargetID: 2, ExtentID: 1}}

	set := Find(extents, targets, assocs)

	assert.Empty(t, set.ExtentIDs)
	assert.Empty(t, set.TargetIDs)
}

// TestFindEverythingOrphanedWithoutAssociations tests the broad definition:
// with no associations at all, every extent and target is orphaned
func TestFindEverythingOrphanedWithoutAssociations(t *testing.T) {
	extents := []types.Extent{{ID: 1}, {ID: 2}}
	targets := []types.Target{{ID: 3}}

	set := Find(extents, targets, nil)

	assert.Equal(t, []int{1, 2}, set.ExtentIDs)
	assert.Equal(t, []int{3}, set.TargetIDs)
}

// TestClean tests independent deletion with counted failures
func TestClean(t *testing.T) {
	backend := &fakeDeleter{failExtent: map[int]bool{2: true}}
	set := types.OrphanSet{ExtentIDs: []int{2, 4}, TargetIDs: []int{7}}

	result := Clean(context.Background(), backend, set)

	assert.Equal(t, 3, result.Found)
	assert.Equal(t, 2, result.Cleaned)
	assert.Equal(t, 1, result.Failed)
	// The failed extent must not stop later deletions
	assert.Equal(t, []int{4}, backend.deletedExtents)
	assert.Equal(t, []int{7}, backend.deletedTargets)
}
