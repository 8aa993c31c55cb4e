package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-simplefs/common"
)

func TestInodeAddr(t *testing.T) {
	assert := assert.New(t)
	a := MkInodeAddr(common.ROOTINUM)
	assert.Equal(common.INODEBLK, a.Blkno)
	assert.Equal(uint64(0), a.ByteOff(), "root occupies the first slot")

	a = MkInodeAddr(common.LASTINUM)
	assert.Equal((common.NOBJECTS-1)*common.INODESZ, a.ByteOff())
	assert.LessOrEqual(a.ByteOff()+common.INODESZ, common.BlockSize,
		"every record fits the table block")
}

func TestDirentAddr(t *testing.T) {
	assert := assert.New(t)
	a := MkDirentAddr(7, 3)
	assert.Equal(common.Bnum(7), a.Blkno)
	assert.Equal(3*common.DIRENTSZ, a.ByteOff())
}
