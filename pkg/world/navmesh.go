package world

// HeightProvider resolves terrain elevation at a 2D world location. The
// navmesh loader implements this; it is read-only at tick scope.
type HeightProvider interface {
	// HeightAt returns the terrain height at the location. The second return
	// is false when the location lies outside navigable terrain; callers then
	// keep their previous elevation.
	HeightAt(loc GlobalLocation) (float32, bool)
}

// FlatTerrain is a HeightProvider returning one constant height everywhere.
// It backs tests and worlds without navmesh data.
type FlatTerrain struct {
	Height float32
}

// HeightAt implements HeightProvider.
func (f FlatTerrain) HeightAt(GlobalLocation) (float32, bool) {
	return f.Height, true
}
