package mkfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/disk"
	"github.com/mit-pdos/go-simplefs/fserr"
	"github.com/mit-pdos/go-simplefs/inode"
	"github.com/mit-pdos/go-simplefs/super"
)

func TestFormat(t *testing.T) {
	d := disk.NewMemDisk(common.NBLOCKS)
	require.NoError(t, Format(d))

	fs, err := super.ReadFsSuper(d)
	require.NoError(t, err)
	assert.Equal(t, common.VERSION, fs.Version)
	assert.Equal(t, uint64(1), fs.InodesCount)
	assert.False(t, fs.InumFree(common.ROOTINUM))
	assert.False(t, fs.BlockFree(common.DATASTART))
	assert.Equal(t, common.NOBJECTS-1, fs.NumFreeInodes())
	assert.Equal(t, common.NOBJECTS-1, fs.NumFreeBlocks())

	root, err := inode.Read(d, common.ROOTINUM)
	require.NoError(t, err)
	assert.Equal(t, &inode.Inode{
		Inum:      common.ROOTINUM,
		Mode:      uint32(inode.KindDir) | RootPerm,
		Nlink:     1,
		DataBlock: common.DATASTART,
		Size:      0,
	}, root)

	for inum := common.ROOTINUM + 1; inum <= common.LASTINUM; inum++ {
		ip, err := inode.Read(d, inum)
		require.NoError(t, err)
		assert.Equal(t, inode.KindFree, ip.Kind(), "inode %d", inum)
	}
}

func TestFormatOverwrites(t *testing.T) {
	d := disk.NewMemDisk(common.NBLOCKS)
	junk := make(disk.Block, common.BlockSize)
	for i := range junk {
		junk[i] = 0xff
	}
	for bn := uint64(0); bn < common.NBLOCKS; bn++ {
		require.NoError(t, d.Write(bn, junk))
	}
	require.NoError(t, Format(d))

	ip, err := inode.Read(d, 2)
	require.NoError(t, err)
	assert.Equal(t, &inode.Inode{}, ip)
	blk, err := d.Read(common.DATASTART)
	require.NoError(t, err)
	assert.Equal(t, make(disk.Block, common.BlockSize), blk)
}

func TestFormatSmallDisk(t *testing.T) {
	d := disk.NewMemDisk(common.NBLOCKS - 1)
	err := Format(d)
	assert.True(t, fserr.Is(err, fserr.OutOfSpace))
}

func TestFormatWriteError(t *testing.T) {
	d := disk.NewFaultyDisk(disk.NewMemDisk(common.NBLOCKS))
	d.FailWrite(common.SUPERBLK, true)
	err := Format(d)
	assert.True(t, fserr.Is(err, fserr.IOError))
	_, err = super.ReadFsSuper(d)
	assert.True(t, fserr.Is(err, fserr.BadSuperblock))
}
