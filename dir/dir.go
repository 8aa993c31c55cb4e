// Package dir is the directory engine. A directory's entries are a gap-free
// array of fixed-size (inum, name) records at the start of its data block;
// the array length is the child count in the directory's metadata record.
//
// Callers hold the volume lock.
package dir

import (
	"strings"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-simplefs/addr"
	"github.com/mit-pdos/go-simplefs/buf"
	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/disk"
	"github.com/mit-pdos/go-simplefs/fserr"
	"github.com/mit-pdos/go-simplefs/inode"
	"github.com/mit-pdos/go-simplefs/super"
	"github.com/mit-pdos/go-simplefs/util"
)

type Dirent struct {
	Inum common.Inum
	Name string
}

// Entry is a directory entry together with its slot in the array.
type Entry struct {
	Dirent
	Index uint64
}

func encodeDirent(de Dirent) []byte {
	enc := marshal.NewEnc(common.DIRENTSZ)
	enc.PutInt(uint64(de.Inum))
	data := enc.Finish()
	copy(data[8:], de.Name)
	return data
}

// nameLen is the length of a stored name: up to the first NUL, or the whole
// field when the name fills it.
func nameLen(field []byte) int {
	for i, c := range field {
		if c == 0 {
			return i
		}
	}
	return len(field)
}

func decodeDirent(data []byte) Dirent {
	dec := marshal.NewDec(data[:8])
	inum := common.Inum(dec.GetInt())
	field := data[8:common.DIRENTSZ]
	return Dirent{Inum: inum, Name: string(field[:nameLen(field)])}
}

func nameEq(field []byte, name string) bool {
	n := nameLen(field)
	return n == len(name) && string(field[:n]) == name
}

// CheckName validates a name before anything is modified.
func CheckName(name string) error {
	if len(name) == 0 {
		return fserr.New(fserr.EmptyName, "empty name")
	}
	if uint64(len(name)) > common.MAXNAME {
		return fserr.New(fserr.NameTooLong, "%q is %d bytes, max %d", name, len(name), common.MAXNAME)
	}
	if strings.ContainsAny(name, "/\x00") {
		return fserr.New(fserr.InvalidArg, "%q contains '/' or NUL", name)
	}
	return nil
}

func checkDir(dp *inode.Inode) error {
	if !dp.IsDir() {
		return fserr.New(fserr.NotDir, "inode %d is a %v", dp.Inum, dp.Kind())
	}
	return nil
}

func readBlock(d disk.Disk, dp *inode.Inode) (disk.Block, error) {
	blk, err := d.Read(dp.DataBlock)
	return blk, fserr.Wrap(err, fserr.IOError)
}

// Find looks name up in dp by linear scan of its entries.
func Find(d disk.Disk, dp *inode.Inode, name string) (Entry, error) {
	if err := checkDir(dp); err != nil {
		return Entry{}, err
	}
	if uint64(len(name)) > common.MAXNAME {
		return Entry{}, fserr.New(fserr.NameTooLong, "%q", name)
	}
	if dp.NChildren() == 0 {
		return Entry{}, fserr.New(fserr.NotFound, "%q in %d", name, dp.Inum)
	}
	blk, err := readBlock(d, dp)
	if err != nil {
		return Entry{}, err
	}
	for i := uint64(0); i < dp.NChildren(); i++ {
		off := i * common.DIRENTSZ
		if nameEq(blk[off+8:off+common.DIRENTSZ], name) {
			de := decodeDirent(blk[off : off+common.DIRENTSZ])
			util.DPrintf(10, "Find: %q in %d -> %d at %d\n", name, dp.Inum, de.Inum, i)
			return Entry{Dirent: de, Index: i}, nil
		}
	}
	return Entry{}, fserr.New(fserr.NotFound, "%q in %d", name, dp.Inum)
}

// List returns dp's entries in array order.
func List(d disk.Disk, dp *inode.Inode) ([]Dirent, error) {
	if err := checkDir(dp); err != nil {
		return nil, err
	}
	ents := make([]Dirent, 0, dp.NChildren())
	if dp.NChildren() == 0 {
		return ents, nil
	}
	blk, err := readBlock(d, dp)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < dp.NChildren(); i++ {
		off := i * common.DIRENTSZ
		ents = append(ents, decodeDirent(blk[off:off+common.DIRENTSZ]))
	}
	return ents, nil
}

// Append adds (name, inum) at the end of dp's entry array. A directory with
// no data block gets one from fs. The entry is written before the count, so
// a crash in between leaves the new slot invisible.
func Append(fs *super.FsSuper, dp *inode.Inode, name string, inum common.Inum) error {
	if err := CheckName(name); err != nil {
		return err
	}
	if err := checkDir(dp); err != nil {
		return err
	}
	n := dp.NChildren()
	if n >= common.NDIRENT {
		return fserr.New(fserr.OutOfSpace, "directory %d holds %d entries", dp.Inum, n)
	}

	var newBlock = false
	if dp.DataBlock == common.NULLBNUM {
		bn, err := fs.AllocBlock()
		if err != nil {
			return err
		}
		dp.DataBlock = bn
		newBlock = true
	}
	undo := func() {
		if newBlock {
			if err := fs.FreeBlock(dp.DataBlock); err != nil {
				util.DPrintf(0, "Append: releasing block %d of %d: %v\n", dp.DataBlock, dp.Inum, err)
			}
			dp.DataBlock = common.NULLBNUM
		}
	}

	b := buf.MkBuf(addr.MkDirentAddr(dp.DataBlock, n), common.DIRENTSZ*8,
		encodeDirent(Dirent{Inum: inum, Name: name}))
	if err := b.WriteDirect(fs.Disk); err != nil {
		undo()
		return fserr.Wrap(err, fserr.IOError)
	}

	dp.Size = n + 1
	if err := dp.Write(fs.Disk); err != nil {
		dp.Size = n
		undo()
		return err
	}
	util.DPrintf(5, "Append: %q -> %d in %d (%d entries)\n", name, inum, dp.Inum, dp.Size)
	return nil
}

// Delete removes the entry at e.Index, shifting the later entries down one
// slot and zeroing the vacated last slot.
func Delete(d disk.Disk, dp *inode.Inode, e Entry) error {
	if err := checkDir(dp); err != nil {
		return err
	}
	n := dp.NChildren()
	if e.Index >= n {
		return fserr.New(fserr.InvalidArg, "entry %d of %d in directory %d", e.Index, n, dp.Inum)
	}
	blk, err := readBlock(d, dp)
	if err != nil {
		return err
	}
	old := util.CloneByteSlice(blk)

	start := e.Index * common.DIRENTSZ
	end := n * common.DIRENTSZ
	copy(blk[start:end], blk[start+common.DIRENTSZ:end])
	last := (n - 1) * common.DIRENTSZ
	for i := last; i < end; i++ {
		blk[i] = 0
	}
	if err := disk.WriteSync(d, dp.DataBlock, blk); err != nil {
		return fserr.Wrap(err, fserr.IOError)
	}

	dp.Size = n - 1
	if err := dp.Write(d); err != nil {
		dp.Size = n
		if rerr := disk.WriteSync(d, dp.DataBlock, old); rerr != nil {
			util.DPrintf(0, "Delete: restoring block %d of %d: %v\n", dp.DataBlock, dp.Inum, rerr)
		}
		return err
	}
	util.DPrintf(5, "Delete: %q from %d (%d entries)\n", e.Name, dp.Inum, dp.Size)
	return nil
}
