package fs

import (
	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/inode"
	"github.com/mit-pdos/go-simplefs/lockmap"
)

// Handle is the in-memory form of an object that someone holds a reference
// to. It caches the object's record; metadata operations write through both
// the cache and the disk, while file size changes from Write stay in the
// cache until Sync or the last Release.
//
// ip and dirty are protected by the object's lock in locks (and are only
// changed by metadata operations that also hold the volume lock). refs is
// protected by the volume lock.
type Handle struct {
	inum  common.Inum
	vid   uuid.UUID
	locks *lockmap.LockMap
	ip    *inode.Inode
	refs  uint64
	dirty bool
}

func mkHandle(vid uuid.UUID, locks *lockmap.LockMap, ip *inode.Inode) *Handle {
	return &Handle{
		inum:  ip.Inum,
		vid:   vid,
		locks: locks,
		ip:    ip,
		refs:  1,
	}
}

func (h *Handle) Less(than btree.Item) bool {
	return h.inum < than.(*Handle).inum
}

func handleKey(inum common.Inum) *Handle {
	return &Handle{inum: inum}
}

func (h *Handle) lock() {
	h.locks.Acquire(h.inum)
}

func (h *Handle) unlock() {
	h.locks.Release(h.inum)
}

func (h *Handle) Inum() common.Inum {
	return h.inum
}

// Volume is the id of the volume h belongs to.
func (h *Handle) Volume() uuid.UUID {
	return h.vid
}

// Stat returns a copy of the cached record.
func (h *Handle) Stat() inode.Inode {
	h.lock()
	defer h.unlock()
	return *h.ip
}

func (h *Handle) Kind() inode.Kind {
	ip := h.Stat()
	return ip.Kind()
}

func (h *Handle) Nlink() uint16 {
	return h.Stat().Nlink
}

// Size is the externally visible size: bytes for a file or symlink, entry
// array length for a directory.
func (h *Handle) Size() uint64 {
	ip := h.Stat()
	return ip.ByteSize()
}

// Release drops the caller's reference. The last release writes back the
// cached record, or reclaims the object if it has no links left.
func (h *Handle) Release() error {
	v, err := lookupVolume(h.vid)
	if err != nil {
		return err
	}
	return v.Release(h)
}
