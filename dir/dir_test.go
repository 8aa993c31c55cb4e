package dir

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/disk"
	"github.com/mit-pdos/go-simplefs/fserr"
	"github.com/mit-pdos/go-simplefs/inode"
	"github.com/mit-pdos/go-simplefs/super"
	"github.com/mit-pdos/go-simplefs/util"
)

type DirSuite struct {
	suite.Suite
	d  *disk.FaultyDisk
	fs *super.FsSuper
	dp *inode.Inode
}

func (suite *DirSuite) SetupTest() {
	suite.d = disk.NewFaultyDisk(disk.NewMemDisk(common.NBLOCKS))
	suite.fs = super.MkFsSuper(suite.d)
	suite.Require().NoError(suite.fs.Write())
	inum, err := suite.fs.AllocInum()
	suite.Require().NoError(err)
	bn, err := suite.fs.AllocBlock()
	suite.Require().NoError(err)
	suite.dp = inode.MkInode(inum, inode.KindDir, 0o755, bn)
	suite.Require().NoError(suite.dp.Write(suite.d))
}

func TestDir(t *testing.T) {
	suite.Run(t, new(DirSuite))
}

func (suite *DirSuite) find(name string) common.Inum {
	e, err := Find(suite.d, suite.dp, name)
	if err != nil {
		return common.NULLINUM
	}
	return e.Inum
}

func (suite *DirSuite) append(name string, inum common.Inum) {
	suite.Require().NoError(Append(suite.fs, suite.dp, name, inum))
}

func (suite *DirSuite) TestAppendFindDelete() {
	suite.append("a", 5)
	suite.append("b", 6)
	suite.Equal(common.Inum(5), suite.find("a"))
	suite.Equal(common.Inum(6), suite.find("b"))
	suite.Equal(uint64(2), suite.dp.NChildren())
	suite.Equal(2*common.DIRENTSZ, suite.dp.ByteSize())

	e, err := Find(suite.d, suite.dp, "a")
	suite.Require().NoError(err)
	suite.NoError(Delete(suite.d, suite.dp, e))

	_, err = Find(suite.d, suite.dp, "a")
	suite.True(fserr.Is(err, fserr.NotFound))
	suite.Equal(common.Inum(6), suite.find("b"))
	suite.Equal(uint64(1), suite.dp.NChildren())

	onDisk, err := inode.Read(suite.d, suite.dp.Inum)
	suite.Require().NoError(err)
	suite.Equal(suite.dp, onDisk, "record written through")
}

func (suite *DirSuite) TestCompaction() {
	for i := 0; i < 5; i++ {
		suite.append(fmt.Sprintf("f%d", i), common.Inum(10+i))
	}
	e, err := Find(suite.d, suite.dp, "f1")
	suite.Require().NoError(err)
	suite.Equal(uint64(1), e.Index)
	suite.NoError(Delete(suite.d, suite.dp, e))

	ents, err := List(suite.d, suite.dp)
	suite.NoError(err)
	suite.Equal([]Dirent{
		{10, "f0"}, {12, "f2"}, {13, "f3"}, {14, "f4"},
	}, ents, "relative order kept")

	blk, _ := suite.d.Read(suite.dp.DataBlock)
	vacated := blk[4*common.DIRENTSZ : 5*common.DIRENTSZ]
	suite.Equal(make([]byte, common.DIRENTSZ), vacated, "last slot zeroed")
}

func (suite *DirSuite) TestDeleteLast() {
	suite.append("x", 3)
	e, _ := Find(suite.d, suite.dp, "x")
	suite.NoError(Delete(suite.d, suite.dp, e))
	ents, err := List(suite.d, suite.dp)
	suite.NoError(err)
	suite.Empty(ents)
	suite.True(fserr.Is(Delete(suite.d, suite.dp, e), fserr.InvalidArg))
}

func (suite *DirSuite) TestNameBoundary() {
	max := strings.Repeat("m", int(common.MAXNAME))
	suite.append(max, 7)
	suite.Equal(common.Inum(7), suite.find(max), "a full-width name is unterminated")
	suite.Equal(common.NULLINUM, suite.find(max[:common.MAXNAME-1]), "prefix does not match")

	err := Append(suite.fs, suite.dp, max+"x", 8)
	suite.True(fserr.Is(err, fserr.NameTooLong))
	suite.Equal(uint64(1), suite.dp.NChildren(), "child count unchanged")

	_, err = Find(suite.d, suite.dp, max+"x")
	suite.True(fserr.Is(err, fserr.NameTooLong))
}

func (suite *DirSuite) TestBadNames() {
	suite.d.ResetWrites()
	suite.True(fserr.Is(Append(suite.fs, suite.dp, "", 3), fserr.EmptyName))
	suite.True(fserr.Is(Append(suite.fs, suite.dp, "a/b", 3), fserr.InvalidArg))
	suite.Empty(suite.d.Writes, "validation fails before any write")
}

func (suite *DirSuite) TestPrefixNames() {
	suite.append("abc", 3)
	suite.append("ab", 4)
	suite.Equal(common.Inum(3), suite.find("abc"))
	suite.Equal(common.Inum(4), suite.find("ab"))
	suite.Equal(common.NULLINUM, suite.find("a"))
}

func (suite *DirSuite) TestFull() {
	for i := uint64(0); i < common.NDIRENT; i++ {
		suite.append(fmt.Sprintf("n%d", i), 2)
	}
	err := Append(suite.fs, suite.dp, "extra", 2)
	suite.True(fserr.Is(err, fserr.OutOfSpace))
	suite.Equal(common.NDIRENT, suite.dp.NChildren())
}

func (suite *DirSuite) TestAllocatesBlock() {
	dp := inode.MkInode(suite.dp.Inum, inode.KindDir, 0o755, common.NULLBNUM)
	free := suite.fs.NumFreeBlocks()
	suite.Require().NoError(Append(suite.fs, dp, "a", 9))
	suite.NotEqual(common.NULLBNUM, dp.DataBlock)
	suite.Equal(free-1, suite.fs.NumFreeBlocks())
	e, err := Find(suite.d, dp, "a")
	suite.NoError(err)
	suite.Equal(common.Inum(9), e.Inum)
}

func (suite *DirSuite) TestAppendIOErrorUndoesBlock() {
	dp := inode.MkInode(suite.dp.Inum, inode.KindDir, 0o755, common.NULLBNUM)
	free := suite.fs.NumFreeBlocks()
	suite.d.FailWrite(common.INODEBLK, true)
	err := Append(suite.fs, dp, "a", 9)
	suite.True(fserr.Is(err, fserr.IOError))
	suite.Equal(common.NULLBNUM, dp.DataBlock)
	suite.Equal(uint64(0), dp.NChildren())
	suite.Equal(free, suite.fs.NumFreeBlocks(), "block released")
}

func (suite *DirSuite) TestDeleteIOErrorRestores() {
	suite.append("a", 3)
	suite.append("b", 4)
	e, _ := Find(suite.d, suite.dp, "a")
	suite.d.FailWrite(common.INODEBLK, true)
	suite.True(fserr.Is(Delete(suite.d, suite.dp, e), fserr.IOError))
	suite.d.FailWrite(common.INODEBLK, false)
	suite.Equal(uint64(2), suite.dp.NChildren())
	suite.Equal(common.Inum(3), suite.find("a"))
	suite.Equal(common.Inum(4), suite.find("b"))
}

func (suite *DirSuite) TestDeleteRestoreFailureLogged() {
	var out bytes.Buffer
	util.Logger().SetOutput(&out)
	defer util.Logger().SetOutput(os.Stderr)

	suite.append("a", 3)
	e, _ := Find(suite.d, suite.dp, "a")
	suite.d.FailAfter(1)
	suite.True(fserr.Is(Delete(suite.d, suite.dp, e), fserr.IOError))
	suite.d.FailAfter(-1)
	suite.Equal(uint64(1), suite.dp.NChildren())
	suite.Contains(out.String(), "restoring block")
}

func (suite *DirSuite) TestNotDir() {
	f := inode.MkInode(5, inode.KindFile, 0o644, common.DATASTART)
	_, err := Find(suite.d, f, "a")
	suite.True(fserr.Is(err, fserr.NotDir))
	suite.True(fserr.Is(Append(suite.fs, f, "a", 3), fserr.NotDir))
}

func TestDirentCodec(t *testing.T) {
	data := encodeDirent(Dirent{Inum: 0x0102, Name: "hello"})
	require.Len(t, data, int(common.DIRENTSZ))
	assert.Equal(t, []byte{2, 1, 0, 0, 0, 0, 0, 0}, data[:8])
	assert.Equal(t, "hello", string(data[8:13]))
	assert.Equal(t, byte(0), data[13])
	assert.Equal(t, Dirent{Inum: 0x0102, Name: "hello"}, decodeDirent(data))
}
