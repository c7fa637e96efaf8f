package visibility

import (
	"cmp"
	"slices"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/schedule"
)

// Mode selects which entities a culling pass considers.
type Mode int

const (
	// ModeCamera tests every entity.
	ModeCamera Mode = iota

	// ModeShadow skips entities that do not cast shadows.
	ModeShadow
)

// Entity is the culling view of a scene object.
type Entity struct {
	ID uint64
	// Bounds is the world-space bounding volume.
	Bounds       common.BoundingVolume
	ShadowCaster bool
}

// Cull returns the IDs of the entities at least partially inside f, in input order.
//
// Parameters:
//   - f: the view frustum
//   - entities: candidate entities
//   - mode: camera or shadow pass
//
// Returns:
//   - []uint64: visible entity IDs
func Cull(f common.Frustum, entities []Entity, mode Mode) []uint64 {
	if f.IsEmpty() {
		return nil
	}
	var out []uint64
	for i := range entities {
		e := &entities[i]
		if mode == ModeShadow && !e.ShadowCaster {
			continue
		}
		if f.Intersects(e.Bounds) {
			out = append(out, e.ID)
		}
	}
	return out
}

// CullMany culls the same entities against several frusta, one frustum per
// parallel partition.
//
// Parameters:
//   - frusta: the view frusta
//   - entities: candidate entities
//   - mode: camera or shadow pass
//   - pool: executor for the partitions; nil runs serially
//
// Returns:
//   - [][]uint64: visible IDs per frustum, in frustum order
func CullMany(frusta []common.Frustum, entities []Entity, mode Mode, pool schedule.Pool) [][]uint64 {
	if pool == nil {
		pool = schedule.Serial{}
	}
	out := make([][]uint64, len(frusta))
	pool.ParallelFor(len(frusta), func(i int) {
		out[i] = Cull(frusta[i], entities, mode)
	})
	return out
}

// Centers indexes entity bounds centers by ID for depth sorting.
//
// Parameters:
//   - entities: the entities
//
// Returns:
//   - map[uint64][3]float32: world-space center per entity ID
func Centers(entities []Entity) map[uint64][3]float32 {
	out := make(map[uint64][3]float32, len(entities))
	for _, e := range entities {
		out[e.ID] = e.Bounds.Center
	}
	return out
}

// SortByDepth orders ids front to back along the view's -Z axis. Equal depths
// keep ascending ID order. IDs missing from centers sort last.
//
// Parameters:
//   - ids: visible entity IDs, sorted in place
//   - centers: world-space centers by ID
//   - view: world to view matrix of the shadow view
func SortByDepth(ids []uint64, centers map[uint64][3]float32, view [16]float32) {
	type keyed struct {
		id    uint64
		depth float32
		ok    bool
	}
	keys := make([]keyed, len(ids))
	for i, id := range ids {
		c, ok := centers[id]
		keys[i] = keyed{id: id, ok: ok}
		if ok {
			keys[i].depth = -common.TransformPoint(view, c)[2]
		}
	}
	slices.SortFunc(keys, func(a, b keyed) int {
		if a.ok != b.ok {
			if a.ok {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(a.depth, b.depth); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	for i := range keys {
		ids[i] = keys[i].id
	}
}
