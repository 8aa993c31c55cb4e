// Package super owns the volume superblock: its on-disk encoding, mount-time
// validation, and the identifier and data-block allocators whose bitmaps it
// stores.
//
// Every allocation and release is written through to block 0 before it
// returns, so the bitmaps on disk never lag the in-memory state.
package super

import (
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-simplefs/alloc"
	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/disk"
	"github.com/mit-pdos/go-simplefs/fserr"
	"github.com/mit-pdos/go-simplefs/util"
)

type FsSuper struct {
	Disk        disk.Disk
	Version     uint64
	Magic       uint64
	BlockSize   uint64
	InodesCount uint64 // live objects
	inodes      *alloc.Alloc
	blocks      *alloc.Alloc
}

// MkFsSuper returns the superblock of an empty volume on d: every identifier
// and data block is free. It is not written.
func MkFsSuper(d disk.Disk) *FsSuper {
	return &FsSuper{
		Disk:        d,
		Version:     common.VERSION,
		Magic:       common.MAGIC,
		BlockSize:   common.BlockSize,
		InodesCount: 0,
		inodes:      alloc.MkMaxAlloc(uint64(common.ROOTINUM), common.NOBJECTS),
		blocks:      alloc.MkMaxAlloc(common.DATASTART, common.NOBJECTS),
	}
}

// Encode produces block 0: six little-endian words followed by zero padding.
func (fs *FsSuper) Encode() disk.Block {
	enc := marshal.NewEnc(common.BlockSize)
	enc.PutInt(fs.Version)
	enc.PutInt(fs.Magic)
	enc.PutInt(fs.BlockSize)
	enc.PutInt(fs.InodesCount)
	enc.PutInt(fs.inodes.Bitmap())
	enc.PutInt(fs.blocks.Bitmap())
	return enc.Finish()
}

func decode(d disk.Disk, blk disk.Block) *FsSuper {
	dec := marshal.NewDec(blk)
	fs := &FsSuper{Disk: d}
	fs.Version = dec.GetInt()
	fs.Magic = dec.GetInt()
	fs.BlockSize = dec.GetInt()
	fs.InodesCount = dec.GetInt()
	fs.inodes = alloc.MkAlloc(uint64(common.ROOTINUM), common.NOBJECTS, dec.GetInt())
	fs.blocks = alloc.MkAlloc(common.DATASTART, common.NOBJECTS, dec.GetInt())
	return fs
}

// ReadFsSuper loads and validates the superblock of d. A volume that is too
// small, or whose magic or block size do not match, fails with BadSuperblock.
func ReadFsSuper(d disk.Disk) (*FsSuper, error) {
	sz, err := d.Size()
	if err != nil {
		return nil, fserr.Wrap(err, fserr.IOError)
	}
	if sz < common.NBLOCKS {
		return nil, fserr.New(fserr.BadSuperblock, "volume has %d blocks, need %d", sz, common.NBLOCKS)
	}
	blk, err := d.Read(common.SUPERBLK)
	if err != nil {
		return nil, fserr.Wrap(err, fserr.IOError)
	}
	fs := decode(d, blk)
	if fs.Magic != common.MAGIC {
		return nil, fserr.New(fserr.BadSuperblock, "magic %#x, expected %#x", fs.Magic, common.MAGIC)
	}
	if fs.BlockSize != common.BlockSize {
		return nil, fserr.New(fserr.BadSuperblock, "block size %d, expected %d", fs.BlockSize, common.BlockSize)
	}
	util.DPrintf(1, "ReadFsSuper: version %d, %d objects\n", fs.Version, fs.InodesCount)
	return fs, nil
}

// Write persists the superblock synchronously.
func (fs *FsSuper) Write() error {
	err := disk.WriteSync(fs.Disk, common.SUPERBLK, fs.Encode())
	return fserr.Wrap(err, fserr.IOError)
}

// AllocInum reserves the lowest free identifier.
func (fs *FsSuper) AllocInum() (common.Inum, error) {
	n, err := fs.inodes.AllocNum()
	if err != nil {
		return common.NULLINUM, err
	}
	fs.InodesCount++
	err = fs.Write()
	if err != nil {
		fs.InodesCount--
		if ferr := fs.inodes.FreeNum(n); ferr != nil {
			util.DPrintf(0, "AllocInum: rolling back %d: %v\n", n, ferr)
		}
		return common.NULLINUM, err
	}
	return common.Inum(n), nil
}

// FreeInum releases inum.
func (fs *FsSuper) FreeInum(inum common.Inum) error {
	err := fs.inodes.FreeNum(uint64(inum))
	if err != nil {
		return err
	}
	fs.InodesCount--
	err = fs.Write()
	if err != nil {
		fs.InodesCount++
		fs.inodes.MarkUsed(uint64(inum))
	}
	return err
}

// AllocBlock reserves the lowest free data block.
func (fs *FsSuper) AllocBlock() (common.Bnum, error) {
	n, err := fs.blocks.AllocNum()
	if err != nil {
		return common.NULLBNUM, err
	}
	err = fs.Write()
	if err != nil {
		if ferr := fs.blocks.FreeNum(n); ferr != nil {
			util.DPrintf(0, "AllocBlock: rolling back %d: %v\n", n, ferr)
		}
		return common.NULLBNUM, err
	}
	return n, nil
}

// FreeBlock releases data block bn.
func (fs *FsSuper) FreeBlock(bn common.Bnum) error {
	err := fs.blocks.FreeNum(bn)
	if err != nil {
		return err
	}
	err = fs.Write()
	if err != nil {
		fs.blocks.MarkUsed(bn)
	}
	return err
}

// MarkInumUsed and MarkBlockUsed claim a specific identifier or block; used
// when formatting.
func (fs *FsSuper) MarkInumUsed(inum common.Inum) {
	if fs.inodes.IsFree(uint64(inum)) {
		fs.InodesCount++
	}
	fs.inodes.MarkUsed(uint64(inum))
}

func (fs *FsSuper) MarkBlockUsed(bn common.Bnum) {
	fs.blocks.MarkUsed(bn)
}

func (fs *FsSuper) InumFree(inum common.Inum) bool {
	return fs.inodes.IsFree(uint64(inum))
}

func (fs *FsSuper) BlockFree(bn common.Bnum) bool {
	return fs.blocks.IsFree(bn)
}

func (fs *FsSuper) IsDataBlock(bn common.Bnum) bool {
	return fs.blocks.InRange(bn)
}

func (fs *FsSuper) NumFreeInodes() uint64 {
	return fs.inodes.NumFree()
}

func (fs *FsSuper) NumFreeBlocks() uint64 {
	return fs.blocks.NumFree()
}

func (fs *FsSuper) InodeBitmap() uint64 {
	return fs.inodes.Bitmap()
}

func (fs *FsSuper) BlockBitmap() uint64 {
	return fs.blocks.Bitmap()
}
