package buf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-simplefs/addr"
	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/disk"
)

func TestInstallBytes(t *testing.T) {
	dst := make([]byte, 8)
	installBytes([]byte{1, 2, 3, 4}, dst, 2, 32)
	assert.Equal(t, []byte{0, 0, 1, 2, 3, 4, 0, 0}, dst)
}

func TestInstallUnaligned(t *testing.T) {
	b := MkBuf(addr.MkAddr(0, 3), 8, []byte{1})
	assert.Panics(t, func() { b.Install(make(disk.Block, disk.BlockSize)) })
}

func TestWriteDirect(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(4)

	blk := make(disk.Block, disk.BlockSize)
	blk[0] = 0xAA
	require.NoError(t, d.Write(2, blk))

	a := addr.MkSlotAddr(2, 1, common.INODESZ)
	b := MkBuf(a, common.INODESZ*8, []byte{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
		17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32,
	})
	assert.NoError(b.WriteDirect(d))

	got, err := d.Read(2)
	require.NoError(t, err)
	assert.Equal(byte(0xAA), got[0], "neighbouring bytes preserved")
	assert.Equal(byte(1), got[32])
	assert.Equal(byte(32), got[63])

	b2, err := ReadBuf(d, a, common.INODESZ*8)
	require.NoError(t, err)
	assert.Equal(b.Data, b2.Data)
}

func TestWriteDirectWholeBlock(t *testing.T) {
	d := disk.NewMemDisk(4)
	data := make(disk.Block, disk.BlockSize)
	data[4095] = 7
	b := MkBuf(addr.MkAddr(3, 0), common.NBITBLOCK, data)
	require.NoError(t, b.WriteDirect(d))
	got, err := d.Read(3)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
