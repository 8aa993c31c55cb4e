package common

import (
	"github.com/tchajed/goose/machine/disk"
)

const (
	BlockSize uint64 = disk.BlockSize
	NBITBLOCK uint64 = disk.BlockSize * 8

	MAGIC   uint64 = 0x10032013
	VERSION uint64 = 1

	// NOBJECTS is the number of allocatable identifiers, and also the number
	// of data blocks; each bitmap is a single 64-bit word.
	NOBJECTS uint64 = 64
	MAXNAME  uint64 = 24

	SUPERSZ  uint64 = 6 * 8 // on-disk size of the superblock fields
	INODESZ  uint64 = 32    // on-disk size
	DIRENTSZ uint64 = 8 + MAXNAME
	NDIRENT  uint64 = BlockSize / DIRENTSZ
)

type Inum uint64
type Bnum = uint64

const (
	NULLINUM Inum = 0
	ROOTINUM Inum = 1
	LASTINUM Inum = Inum(NOBJECTS)
	NULLBNUM Bnum = 0
)

const (
	SUPERBLK  Bnum   = 0
	INODEBLK  Bnum   = 1
	DATASTART Bnum   = 2
	DATAEND   Bnum   = DATASTART + Bnum(NOBJECTS) // exclusive
	NBLOCKS   uint64 = uint64(DATAEND)
)

func (inum Inum) Valid() bool {
	return inum >= ROOTINUM && inum <= LASTINUM
}
