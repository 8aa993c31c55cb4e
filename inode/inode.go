// Package inode is the metadata table: one fixed-size record per identifier,
// packed into block 1. Records are read on demand and every write is flushed
// to disk before it returns.
package inode

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-simplefs/addr"
	"github.com/mit-pdos/go-simplefs/buf"
	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/disk"
	"github.com/mit-pdos/go-simplefs/fserr"
	"github.com/mit-pdos/go-simplefs/util"
)

// Kind is the file type, stored in the S_IFMT bits of the mode.
type Kind uint32

const (
	KindFree    Kind = 0
	KindFile    Kind = 0o100000
	KindDir     Kind = 0o040000
	KindSymlink Kind = 0o120000

	S_IFMT uint32 = 0o170000
)

func (k Kind) String() string {
	switch k {
	case KindFree:
		return "free"
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	}
	return fmt.Sprintf("kind(%#o)", uint32(k))
}

func (k Kind) Valid() bool {
	return k == KindFile || k == KindDir || k == KindSymlink
}

// Inode is a metadata record. Size is the byte length of a file or symlink
// target, and the number of entries of a directory.
//
// On disk (32 bytes, little endian): mode u32, nlink u16, 2 bytes padding,
// inum u64, data block u64, size u64.
type Inode struct {
	Inum      common.Inum
	Mode      uint32
	Nlink     uint16
	DataBlock common.Bnum
	Size      uint64
}

// MkInode returns the record of a freshly created object: one link, nothing
// stored yet.
func MkInode(inum common.Inum, kind Kind, perm uint32, bn common.Bnum) *Inode {
	return &Inode{
		Inum:      inum,
		Mode:      uint32(kind) | (perm &^ S_IFMT),
		Nlink:     1,
		DataBlock: bn,
		Size:      0,
	}
}

func (ip *Inode) Kind() Kind {
	return Kind(ip.Mode & S_IFMT)
}

func (ip *Inode) IsDir() bool {
	return ip.Kind() == KindDir
}

// Perm is the permission part of the mode; stored but never enforced.
func (ip *Inode) Perm() uint32 {
	return ip.Mode &^ S_IFMT
}

// NChildren is the entry count of a directory, and 0 for anything else.
func (ip *Inode) NChildren() uint64 {
	if ip.IsDir() {
		return ip.Size
	}
	return 0
}

// ByteSize is the externally visible size: entry array length for a
// directory, byte length otherwise.
func (ip *Inode) ByteSize() uint64 {
	if ip.IsDir() {
		return ip.Size * common.DIRENTSZ
	}
	return ip.Size
}

func (ip *Inode) String() string {
	return fmt.Sprintf("inode %d: %v mode %#o nlink %d blk %d size %d",
		ip.Inum, ip.Kind(), ip.Perm(), ip.Nlink, ip.DataBlock, ip.Size)
}

func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt(uint64(ip.Mode) | uint64(ip.Nlink)<<32)
	enc.PutInt(uint64(ip.Inum))
	enc.PutInt(ip.DataBlock)
	enc.PutInt(ip.Size)
	return enc.Finish()
}

func Decode(data []byte) *Inode {
	dec := marshal.NewDec(data)
	ip := &Inode{}
	w := dec.GetInt()
	ip.Mode = uint32(w)
	ip.Nlink = uint16(w >> 32)
	ip.Inum = common.Inum(dec.GetInt())
	ip.DataBlock = dec.GetInt()
	ip.Size = dec.GetInt()
	return ip
}

func checkInum(inum common.Inum) error {
	if !inum.Valid() {
		return fserr.New(fserr.InvalidIdentifier, "inode %d outside [%d,%d]",
			inum, common.ROOTINUM, common.LASTINUM)
	}
	return nil
}

// Read loads inum's record. The record's own inum field is whatever is on
// disk; a free slot reads back zeroed.
func Read(d disk.Disk, inum common.Inum) (*Inode, error) {
	if err := checkInum(inum); err != nil {
		return nil, err
	}
	b, err := buf.ReadBuf(d, addr.MkInodeAddr(inum), common.INODESZ*8)
	if err != nil {
		return nil, fserr.Wrap(err, fserr.IOError)
	}
	return Decode(b.Data), nil
}

// Write stores ip in ip.Inum's slot and flushes the table block.
func (ip *Inode) Write(d disk.Disk) error {
	if err := checkInum(ip.Inum); err != nil {
		return err
	}
	util.DPrintf(5, "inode.Write: %v\n", ip)
	b := buf.MkBuf(addr.MkInodeAddr(ip.Inum), common.INODESZ*8, ip.Encode())
	return fserr.Wrap(b.WriteDirect(d), fserr.IOError)
}

// Clear zeroes inum's slot and flushes the table block.
func Clear(d disk.Disk, inum common.Inum) error {
	if err := checkInum(inum); err != nil {
		return err
	}
	util.DPrintf(5, "inode.Clear: %d\n", inum)
	b := buf.MkBuf(addr.MkInodeAddr(inum), common.INODESZ*8, make([]byte, common.INODESZ))
	return fserr.Wrap(b.WriteDirect(d), fserr.IOError)
}
