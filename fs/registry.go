package fs

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mit-pdos/go-simplefs/fserr"
)

// Mounted volumes by id. Handles name their volume by id only and find it
// here, so a handle never keeps an unmounted volume alive.
var registry = struct {
	mu   *sync.Mutex
	vols map[uuid.UUID]*Volume
}{
	mu:   new(sync.Mutex),
	vols: make(map[uuid.UUID]*Volume),
}

func register(v *Volume) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.vols[v.id] = v
}

func unregister(id uuid.UUID) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.vols, id)
}

func lookupVolume(id uuid.UUID) (*Volume, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	v, ok := registry.vols[id]
	if !ok {
		return nil, fserr.New(fserr.NotMounted, "volume %v", id)
	}
	return v, nil
}
