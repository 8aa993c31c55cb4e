package fs

import (
	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/dir"
	"github.com/mit-pdos/go-simplefs/disk"
	"github.com/mit-pdos/go-simplefs/fserr"
	"github.com/mit-pdos/go-simplefs/inode"
	"github.com/mit-pdos/go-simplefs/util"
)

// begin takes the volume lock and checks the handles passed to an
// operation. On error the lock is not held.
func (v *Volume) begin(hs ...*Handle) error {
	v.mu.Lock()
	if err := v.checkMounted(); err != nil {
		v.mu.Unlock()
		return err
	}
	for _, h := range hs {
		if err := v.owns(h); err != nil {
			v.mu.Unlock()
			return err
		}
	}
	return nil
}

// checkParent checks that dh can receive a new entry.
func checkParent(dh *Handle) error {
	if !dh.ip.IsDir() {
		return fserr.New(fserr.NotDir, "inode %d is a %v", dh.inum, dh.ip.Kind())
	}
	if dh.ip.Nlink == 0 {
		return fserr.New(fserr.NotFound, "directory %d has been removed", dh.inum)
	}
	return nil
}

func (v *Volume) checkAbsent(dh *Handle, name string) error {
	_, err := dir.Find(v.d, dh.ip, name)
	if err == nil {
		return fserr.New(fserr.FileExists, "%q in %d", name, dh.inum)
	}
	if !fserr.Is(err, fserr.NotFound) {
		return err
	}
	return nil
}

// Lookup resolves name in directory dh and returns a referenced handle for
// it. The volume lock is held for the whole lookup, including the read of
// the directory block.
func (v *Volume) Lookup(dh *Handle, name string) (*Handle, error) {
	if err := v.begin(dh); err != nil {
		return nil, err
	}
	defer v.mu.Unlock()
	e, err := dir.Find(v.d, dh.ip, name)
	if err != nil {
		return nil, err
	}
	return v.igetLocked(e.Inum)
}

// Readdir returns the entries of dh in array order.
func (v *Volume) Readdir(dh *Handle) ([]dir.Dirent, error) {
	if err := v.begin(dh); err != nil {
		return nil, err
	}
	defer v.mu.Unlock()
	return dir.List(v.d, dh.ip)
}

// Create makes a regular file called name in dh.
func (v *Volume) Create(dh *Handle, name string, perm uint32) (*Handle, error) {
	return v.create(dh, name, inode.KindFile, perm, "")
}

// Mkdir makes an empty directory called name in dh.
func (v *Volume) Mkdir(dh *Handle, name string, perm uint32) (*Handle, error) {
	return v.create(dh, name, inode.KindDir, perm, "")
}

// Symlink makes a symbolic link called name in dh pointing at target.
func (v *Volume) Symlink(dh *Handle, name string, target string) (*Handle, error) {
	return v.create(dh, name, inode.KindSymlink, 0o777, target)
}

// create reserves an identifier and a block, initializes the record and the
// block, and links the new object into dh. Either every step happens or,
// after a failure, everything reserved is released again.
func (v *Volume) create(dh *Handle, name string, kind inode.Kind, perm uint32, target string) (*Handle, error) {
	if err := dir.CheckName(name); err != nil {
		return nil, err
	}
	if kind == inode.KindSymlink {
		if len(target) == 0 {
			return nil, fserr.New(fserr.EmptyName, "empty symlink target")
		}
		if uint64(len(target)) >= common.BlockSize {
			return nil, fserr.New(fserr.NameTooLong, "symlink target is %d bytes", len(target))
		}
	}
	if err := v.begin(dh); err != nil {
		return nil, err
	}
	defer v.mu.Unlock()
	if err := checkParent(dh); err != nil {
		return nil, err
	}
	if err := v.checkAbsent(dh, name); err != nil {
		return nil, err
	}

	inum, err := v.super.AllocInum()
	if err != nil {
		return nil, err
	}
	bn, err := v.super.AllocBlock()
	if err != nil {
		if ferr := v.super.FreeInum(inum); ferr != nil {
			util.DPrintf(0, "create: releasing inode %d: %v\n", inum, ferr)
		}
		return nil, err
	}
	undo := func(cause error) error {
		util.DPrintf(1, "create %q: undo inode %d block %d: %v\n", name, inum, bn, cause)
		if err := inode.Clear(v.d, inum); err != nil {
			util.DPrintf(0, "create: clearing inode %d: %v\n", inum, err)
		}
		if err := v.super.FreeBlock(bn); err != nil {
			util.DPrintf(0, "create: releasing block %d: %v\n", bn, err)
		}
		if err := v.super.FreeInum(inum); err != nil {
			util.DPrintf(0, "create: releasing inode %d: %v\n", inum, err)
		}
		return cause
	}

	ip := inode.MkInode(inum, kind, perm, bn)
	blk := make(disk.Block, common.BlockSize)
	if kind == inode.KindSymlink {
		copy(blk, target)
		ip.Size = uint64(len(target))
	}
	if err := disk.WriteSync(v.d, bn, blk); err != nil {
		return nil, undo(fserr.Wrap(err, fserr.IOError))
	}
	if err := ip.Write(v.d); err != nil {
		return nil, undo(err)
	}

	dh.lock()
	err = dir.Append(v.super, dh.ip, name, inum)
	dh.unlock()
	if err != nil {
		return nil, undo(err)
	}

	h := mkHandle(v.id, v.locks, ip)
	v.handles.ReplaceOrInsert(h)
	util.DPrintf(1, "create: %q in %d -> %v\n", name, dh.inum, ip)
	return h, nil
}

// Link adds an entry called name in dh for the existing object target.
func (v *Volume) Link(target *Handle, dh *Handle, name string) error {
	if err := dir.CheckName(name); err != nil {
		return err
	}
	if err := v.begin(target, dh); err != nil {
		return err
	}
	defer v.mu.Unlock()
	if err := checkParent(dh); err != nil {
		return err
	}
	if target.ip.IsDir() {
		return fserr.New(fserr.LinkDir, "inode %d is a directory", target.inum)
	}
	if target.ip.Nlink == 0 {
		return fserr.New(fserr.NotFound, "inode %d has been unlinked", target.inum)
	}
	if err := v.checkAbsent(dh, name); err != nil {
		return err
	}

	dh.lock()
	err := dir.Append(v.super, dh.ip, name, target.inum)
	dh.unlock()
	if err != nil {
		return err
	}

	target.lock()
	target.ip.Nlink++
	err = target.ip.Write(v.d)
	if err != nil {
		target.ip.Nlink--
	} else {
		target.dirty = false
	}
	target.unlock()
	if err != nil {
		v.dropEntry(dh, name)
		return err
	}
	util.DPrintf(1, "link: %q in %d -> %d (nlink %d)\n", name, dh.inum, target.inum, target.ip.Nlink)
	return nil
}

// dropEntry removes name from dh to back out of a failed operation.
func (v *Volume) dropEntry(dh *Handle, name string) {
	dh.lock()
	defer dh.unlock()
	e, err := dir.Find(v.d, dh.ip, name)
	if err == nil {
		err = dir.Delete(v.d, dh.ip, e)
	}
	if err != nil {
		util.DPrintf(0, "dropEntry: %q in %d: %v\n", name, dh.inum, err)
	}
}

// restoreEntry puts name back into dh after a removal failed past the
// directory update. The entry goes to the end of the array.
func (v *Volume) restoreEntry(dh *Handle, name string, inum common.Inum) {
	dh.lock()
	defer dh.unlock()
	if err := dir.Append(v.super, dh.ip, name, inum); err != nil {
		util.DPrintf(0, "restoreEntry: %q in %d: %v\n", name, dh.inum, err)
	}
}

// Unlink removes the entry name from dh. When that was the object's last
// link and no handle references it, the object is reclaimed now; otherwise
// reclamation waits for the last Release.
func (v *Volume) Unlink(dh *Handle, name string) error {
	return v.remove(dh, name, false)
}

// Rmdir removes the empty directory name from dh.
func (v *Volume) Rmdir(dh *Handle, name string) error {
	return v.remove(dh, name, true)
}

func (v *Volume) remove(dh *Handle, name string, isDir bool) error {
	if err := dir.CheckName(name); err != nil {
		return err
	}
	if err := v.begin(dh); err != nil {
		return err
	}
	defer v.mu.Unlock()

	e, err := dir.Find(v.d, dh.ip, name)
	if err != nil {
		return err
	}
	h := v.lookupHandle(e.Inum)
	var ip *inode.Inode
	if h != nil {
		ip = h.ip
	} else {
		ip, err = inode.Read(v.d, e.Inum)
		if err != nil {
			return err
		}
		if !ip.Kind().Valid() {
			return fserr.New(fserr.InvalidIdentifier, "entry %q refers to free inode %d", name, e.Inum)
		}
	}
	if isDir && !ip.IsDir() {
		return fserr.New(fserr.NotDir, "%q is a %v", name, ip.Kind())
	}
	if !isDir && ip.IsDir() {
		return fserr.New(fserr.IsDir, "%q", name)
	}
	if isDir && ip.NChildren() != 0 {
		return fserr.New(fserr.NotEmpty, "%q has %d entries", name, ip.NChildren())
	}
	if ip.Nlink == 0 {
		util.DPrintf(0, "remove: %q refers to inode %d with no links\n", name, e.Inum)
		ip.Nlink = 1
	}

	dh.lock()
	err = dir.Delete(v.d, dh.ip, e)
	dh.unlock()
	if err != nil {
		return err
	}

	if h != nil {
		h.lock()
		defer h.unlock()
	}
	ip.Nlink--
	if ip.Nlink == 0 && h == nil {
		util.DPrintf(1, "reclaim: %v\n", ip)
		if err := inode.Clear(v.d, ip.Inum); err != nil {
			ip.Nlink++
			v.restoreEntry(dh, name, e.Inum)
			return err
		}
		return v.freeStorage(ip)
	}
	err = ip.Write(v.d)
	if err != nil {
		ip.Nlink++
		v.restoreEntry(dh, name, e.Inum)
		return err
	}
	if h != nil {
		h.dirty = false
	}
	util.DPrintf(1, "remove: %q from %d (inode %d nlink %d)\n", name, dh.inum, e.Inum, ip.Nlink)
	return nil
}
