package fs

import (
	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/disk"
	"github.com/mit-pdos/go-simplefs/fserr"
	"github.com/mit-pdos/go-simplefs/inode"
	"github.com/mit-pdos/go-simplefs/util"
)

// Data operations take only the object's lock, so they run concurrently
// with each other and with metadata operations on other objects.

func (v *Volume) checkHandle(h *Handle) error {
	if err := v.begin(h); err != nil {
		return err
	}
	v.mu.Unlock()
	return nil
}

func bmapLocked(h *Handle, lblk uint64) (common.Bnum, error) {
	if h.ip.IsDir() {
		return common.NULLBNUM, fserr.New(fserr.IsDir, "inode %d", h.inum)
	}
	if lblk >= 1 {
		return common.NULLBNUM, fserr.New(fserr.FileTooLarge, "block %d of inode %d", lblk, h.inum)
	}
	return h.ip.DataBlock, nil
}

// Bmap maps logical block lblk of h's object to its physical block. Every
// object owns exactly one block, so only lblk 0 maps.
func (v *Volume) Bmap(h *Handle, lblk uint64) (common.Bnum, error) {
	if err := v.checkHandle(h); err != nil {
		return common.NULLBNUM, err
	}
	h.lock()
	defer h.unlock()
	return bmapLocked(h, lblk)
}

// ReadAt returns up to n bytes of h's contents starting at off. Reads past
// the end of the object return fewer bytes.
func (v *Volume) ReadAt(h *Handle, off uint64, n uint64) ([]byte, error) {
	if err := v.checkHandle(h); err != nil {
		return nil, err
	}
	h.lock()
	defer h.unlock()
	bn, err := bmapLocked(h, 0)
	if err != nil {
		return nil, err
	}
	if off >= h.ip.Size || n == 0 {
		return nil, nil
	}
	n = util.Min(n, h.ip.Size-off)
	blk, err := v.d.Read(bn)
	if err != nil {
		return nil, fserr.Wrap(err, fserr.IOError)
	}
	return util.CloneByteSlice(blk[off : off+n]), nil
}

// WriteAt stores data at off in h's file and extends its size to cover the
// written range. The new size is cached in h and reaches the metadata table
// on Sync or on the last Release.
func (v *Volume) WriteAt(h *Handle, off uint64, data []byte) (uint64, error) {
	if err := v.checkHandle(h); err != nil {
		return 0, err
	}
	h.lock()
	defer h.unlock()
	if h.ip.Kind() == inode.KindSymlink {
		return 0, fserr.New(fserr.InvalidArg, "write to symlink %d", h.inum)
	}
	cnt := uint64(len(data))
	if util.SumOverflows(off, cnt) || off+cnt > common.BlockSize {
		return 0, fserr.New(fserr.FileTooLarge, "write of %d bytes at %d to inode %d", cnt, off, h.inum)
	}
	bn, err := bmapLocked(h, off/common.BlockSize)
	if err != nil {
		return 0, err
	}
	if cnt == 0 {
		return 0, nil
	}
	blk, err := v.d.Read(bn)
	if err != nil {
		return 0, fserr.Wrap(err, fserr.IOError)
	}
	copy(blk[off:], data)
	if err := disk.WriteSync(v.d, bn, blk); err != nil {
		return 0, fserr.Wrap(err, fserr.IOError)
	}
	if off+cnt > h.ip.Size {
		h.ip.Size = off + cnt
		h.dirty = true
	}
	util.DPrintf(5, "WriteAt: inode %d off %d cnt %d size %d\n", h.inum, off, cnt, h.ip.Size)
	return cnt, nil
}

// Readlink returns the target of symlink h.
func (v *Volume) Readlink(h *Handle) (string, error) {
	if err := v.checkHandle(h); err != nil {
		return "", err
	}
	h.lock()
	defer h.unlock()
	if h.ip.Kind() != inode.KindSymlink {
		return "", fserr.New(fserr.InvalidArg, "inode %d is a %v", h.inum, h.ip.Kind())
	}
	blk, err := v.d.Read(h.ip.DataBlock)
	if err != nil {
		return "", fserr.Wrap(err, fserr.IOError)
	}
	return string(blk[:util.Min(h.ip.Size, common.BlockSize)]), nil
}
