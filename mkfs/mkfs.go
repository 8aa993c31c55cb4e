// Package mkfs writes an empty volume: a superblock whose bitmaps reserve
// only the root, a zeroed metadata table with the root's record, and the
// root's empty entry block.
package mkfs

import (
	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/disk"
	"github.com/mit-pdos/go-simplefs/fserr"
	"github.com/mit-pdos/go-simplefs/inode"
	"github.com/mit-pdos/go-simplefs/super"
	"github.com/mit-pdos/go-simplefs/util"
)

const RootPerm uint32 = 0o755

// Format initializes d. Anything previously stored in the first NBLOCKS
// blocks is lost.
func Format(d disk.Disk) error {
	sz, err := d.Size()
	if err != nil {
		return fserr.Wrap(err, fserr.IOError)
	}
	if sz < common.NBLOCKS {
		return fserr.New(fserr.OutOfSpace, "disk has %d blocks, need %d", sz, common.NBLOCKS)
	}

	fs := super.MkFsSuper(d)
	fs.MarkInumUsed(common.ROOTINUM)
	fs.MarkBlockUsed(common.DATASTART)

	zero := make(disk.Block, common.BlockSize)
	if err := d.Write(common.INODEBLK, zero); err != nil {
		return fserr.Wrap(err, fserr.IOError)
	}
	if err := d.Write(common.DATASTART, zero); err != nil {
		return fserr.Wrap(err, fserr.IOError)
	}
	root := inode.MkInode(common.ROOTINUM, inode.KindDir, RootPerm, common.DATASTART)
	util.DPrintf(5, "root %v\n", root)
	if err := root.Write(d); err != nil {
		return err
	}
	// superblock last: a volume is mountable only once the root is in place
	if err := fs.Write(); err != nil {
		return err
	}
	util.DPrintf(1, "Format: %d blocks, root %v\n", sz, root)
	return nil
}
