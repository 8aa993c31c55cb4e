// Package fs is the object lifecycle manager of a mounted volume: it
// composes the allocators, the metadata table and the directory engine into
// create, link, unlink, rmdir and lookup, and manages object handles.
//
// All metadata operations run under one mutex per volume. Every block they
// touch is flushed before the mutex is released, so no operation ever sees a
// partially written bitmap, record or directory. The lock is coarse on
// purpose; with at most 64 objects it is never the bottleneck, and finer
// locking would change which intermediate states a failure can leave behind.
package fs

import (
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/disk"
	"github.com/mit-pdos/go-simplefs/fserr"
	"github.com/mit-pdos/go-simplefs/inode"
	"github.com/mit-pdos/go-simplefs/lockmap"
	"github.com/mit-pdos/go-simplefs/super"
	"github.com/mit-pdos/go-simplefs/util"
)

type Volume struct {
	mu      *sync.Mutex // the volume lock
	id      uuid.UUID
	d       disk.Disk
	super   *super.FsSuper
	handles *btree.BTree // *Handle by inum
	locks   *lockmap.LockMap
	root    *Handle // pinned for the life of the mount
	mounted bool
}

// Mount validates d's superblock and root directory and registers the
// volume. It never formats: a volume without a valid superblock or root
// fails with BadSuperblock and nothing on it becomes reachable.
func Mount(d disk.Disk) (*Volume, error) {
	fs, err := super.ReadFsSuper(d)
	if err != nil {
		util.DPrintf(0, "Mount: %v\n", err)
		return nil, err
	}
	if fs.InumFree(common.ROOTINUM) {
		return nil, fserr.New(fserr.BadSuperblock, "root inode %d is not allocated", common.ROOTINUM)
	}
	rip, err := inode.Read(d, common.ROOTINUM)
	if err != nil {
		return nil, err
	}
	if !rip.IsDir() || rip.Inum != common.ROOTINUM {
		return nil, fserr.New(fserr.BadSuperblock, "bad root: %v", rip)
	}

	v := &Volume{
		mu:      new(sync.Mutex),
		id:      uuid.New(),
		d:       d,
		super:   fs,
		handles: btree.New(4),
		locks:   lockmap.MkLockMap(),
		mounted: true,
	}
	v.root = mkHandle(v.id, v.locks, rip)
	v.handles.ReplaceOrInsert(v.root)

	// stamp the superblock as the first write of the mount
	if err := fs.Write(); err != nil {
		return nil, err
	}
	register(v)
	util.WithVolume(v.id.String()).Infof("mounted: %d objects, %d free blocks",
		fs.InodesCount, fs.NumFreeBlocks())
	return v, nil
}

func (v *Volume) ID() uuid.UUID {
	return v.id
}

func (v *Volume) checkMounted() error {
	if !v.mounted {
		return fserr.New(fserr.NotMounted, "volume %v", v.id)
	}
	return nil
}

// owns checks that h is a live handle of this volume. A handle whose last
// reference was released is dead even though the caller still has it: its
// object may have been reclaimed and its identifier reused.
func (v *Volume) owns(h *Handle) error {
	if h == nil || h.vid != v.id {
		return fserr.New(fserr.InvalidArg, "handle does not belong to volume %v", v.id)
	}
	if h.refs == 0 || v.lookupHandle(h.inum) != h {
		return fserr.New(fserr.InvalidArg, "handle for inode %d was released", h.inum)
	}
	return nil
}

func (v *Volume) lookupHandle(inum common.Inum) *Handle {
	item := v.handles.Get(handleKey(inum))
	if item == nil {
		return nil
	}
	return item.(*Handle)
}

// igetLocked returns a referenced handle for inum, reading the record if no
// handle is resident. Unallocated identifiers are invalid references.
func (v *Volume) igetLocked(inum common.Inum) (*Handle, error) {
	if !inum.Valid() || v.super.InumFree(inum) {
		return nil, fserr.New(fserr.InvalidIdentifier, "inode %d is not allocated", inum)
	}
	if h := v.lookupHandle(inum); h != nil {
		h.refs++
		return h, nil
	}
	ip, err := inode.Read(v.d, inum)
	if err != nil {
		return nil, err
	}
	if !ip.Kind().Valid() || ip.Inum != inum {
		return nil, fserr.New(fserr.InvalidIdentifier, "corrupt record for %d: %v", inum, ip)
	}
	h := mkHandle(v.id, v.locks, ip)
	v.handles.ReplaceOrInsert(h)
	util.DPrintf(5, "iget: %v\n", ip)
	return h, nil
}

// Iget materializes (or reuses) the handle for inum.
func (v *Volume) Iget(inum common.Inum) (*Handle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkMounted(); err != nil {
		return nil, err
	}
	return v.igetLocked(inum)
}

// Root returns a new reference to the root directory.
func (v *Volume) Root() (*Handle, error) {
	return v.Iget(common.ROOTINUM)
}

// writeback stores h's cached record if Write changed it. Caller holds the
// volume lock.
func (v *Volume) writeback(h *Handle) error {
	h.lock()
	defer h.unlock()
	if !h.dirty {
		return nil
	}
	if err := h.ip.Write(v.d); err != nil {
		return err
	}
	h.dirty = false
	return nil
}

// reclaim frees an object with no links and no handles: its record is
// zeroed, then its block and identifier are released.
func (v *Volume) reclaim(ip *inode.Inode) error {
	util.DPrintf(1, "reclaim: %v\n", ip)
	if err := inode.Clear(v.d, ip.Inum); err != nil {
		return err
	}
	return v.freeStorage(ip)
}

// freeStorage releases the block and identifier of an object whose record
// is already zeroed. If a release fails its bit stays allocated with nothing
// owning it; Check reports it.
func (v *Volume) freeStorage(ip *inode.Inode) error {
	if ip.DataBlock != common.NULLBNUM && v.super.IsDataBlock(ip.DataBlock) {
		if err := v.super.FreeBlock(ip.DataBlock); err != nil {
			return err
		}
	}
	return v.super.FreeInum(ip.Inum)
}

// Release drops one reference to h. When the last reference goes, the
// handle is evicted: an object that still has links gets its cached record
// written back; one without links is reclaimed.
func (v *Volume) Release(h *Handle) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkMounted(); err != nil {
		return err
	}
	if err := v.owns(h); err != nil {
		return err
	}
	if h == v.root && h.refs == 1 {
		return fserr.New(fserr.InvalidArg, "release of the pinned root")
	}
	h.refs--
	if h.refs > 0 {
		return nil
	}
	v.handles.Delete(h)
	if h.ip.Nlink == 0 {
		return v.reclaim(h.ip)
	}
	return v.writeback(h)
}

// Sync writes h's cached record to disk.
func (v *Volume) Sync(h *Handle) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkMounted(); err != nil {
		return err
	}
	if err := v.owns(h); err != nil {
		return err
	}
	return v.writeback(h)
}

// SyncAll writes back every resident handle, in identifier order.
func (v *Volume) SyncAll() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkMounted(); err != nil {
		return err
	}
	return v.syncAllLocked()
}

func (v *Volume) syncAllLocked() error {
	var err error
	v.handles.Ascend(func(item btree.Item) bool {
		err = v.writeback(item.(*Handle))
		return err == nil
	})
	if err != nil {
		return err
	}
	return fserr.Wrap(v.d.Barrier(), fserr.IOError)
}

// Unmount writes back every handle and unregisters the volume. Handles
// still held become unusable; their Release reports NotMounted.
func (v *Volume) Unmount() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkMounted(); err != nil {
		return err
	}
	if err := v.syncAllLocked(); err != nil {
		return err
	}
	v.mounted = false
	unregister(v.id)
	util.WithVolume(v.id.String()).Infof("unmounted: %d handles resident", v.handles.Len())
	return nil
}

type Statfs struct {
	Magic      uint64
	BlockSize  uint64
	NameMax    uint64
	Objects    uint64 // live objects
	FreeInodes uint64
	FreeBlocks uint64
	Blocks     uint64 // data blocks
	Imap       uint64 // set bits are free identifiers
	Dmap       uint64 // set bits are free data blocks
}

func (v *Volume) Statfs() Statfs {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Statfs{
		Magic:      v.super.Magic,
		BlockSize:  v.super.BlockSize,
		NameMax:    common.MAXNAME,
		Objects:    v.super.InodesCount,
		FreeInodes: v.super.NumFreeInodes(),
		FreeBlocks: v.super.NumFreeBlocks(),
		Blocks:     common.NOBJECTS,
		Imap:       v.super.InodeBitmap(),
		Dmap:       v.super.BlockBitmap(),
	}
}
