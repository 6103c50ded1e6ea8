package shape

import (
	"github.com/RoaringBitmap/roaring/v2"
	"go.uber.org/zap"
)

// GCStats summarizes one garbage collection pass.
type GCStats struct {
	Total   int // live shapes before collection
	Deleted int // shapes freed
}

// Reachable returns the ids of every shape reachable from the roots through
// boundary references.
func (a *Arena) Reachable() *roaring.Bitmap {
	marked := roaring.New()
	var mark func(id ShapeID)
	mark = func(id ShapeID) {
		if !marked.CheckedAdd(uint32(id)) {
			return
		}
		s, ok := a.shapes.get(id)
		if !ok {
			return
		}
		for _, child := range s.Boundary.Refs() {
			mark(child.ID)
		}
	}
	for _, root := range a.roots {
		mark(root)
	}
	return marked
}

// GC frees every shape not reachable from the roots. Freed ids may be
// handed out again by later cuts.
func (a *Arena) GC() GCStats {
	live := roaring.New()
	for _, id := range a.shapes.ids() {
		live.Add(uint32(id))
	}
	dead := roaring.AndNot(live, a.Reachable())

	stats := GCStats{Total: int(live.GetCardinality()), Deleted: int(dead.GetCardinality())}
	it := dead.Iterator()
	for it.HasNext() {
		id := ShapeID(it.Next())
		a.log.Debug("gc: deleting", zap.Stringer("shape", id))
		a.shapes.remove(id)
	}

	percent := 0
	if stats.Total > 0 {
		percent = stats.Deleted * 100 / stats.Total
	}
	a.log.Info("garbage collected shapes",
		zap.Int("deleted", stats.Deleted),
		zap.Int("total", stats.Total),
		zap.Int("percent", percent))
	return stats
}
