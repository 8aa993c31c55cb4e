// buf manages sub-block disk objects (metadata records, directory entries),
// packed into disk blocks and written through synchronously.
package buf

import (
	"github.com/mit-pdos/go-simplefs/addr"
	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/disk"
	"github.com/mit-pdos/go-simplefs/util"
)

// A Buf is a write to a disk object (a record, an entry, or a disk block)
type Buf struct {
	Addr addr.Addr
	Sz   uint64 // number of bits
	Data []byte
}

func MkBuf(addr addr.Addr, sz uint64, data []byte) *Buf {
	b := &Buf{
		Addr: addr,
		Sz:   sz,
		Data: data,
	}
	return b
}

// Load the bits of a disk block into a new buf, as specified by addr
func MkBufLoad(addr addr.Addr, sz uint64, blk disk.Block) *Buf {
	bytefirst := addr.ByteOff()
	bytelast := (addr.Off + sz - 1) / 8
	data := blk[bytefirst : bytelast+1]
	b := &Buf{
		Addr: addr,
		Sz:   sz,
		Data: data,
	}
	return b
}

// ReadBuf reads the block holding addr and returns a buf over the object.
// The buf aliases a private copy of the block.
func ReadBuf(d disk.Disk, addr addr.Addr, sz uint64) (*Buf, error) {
	blk, err := d.Read(addr.Blkno)
	if err != nil {
		return nil, err
	}
	return MkBufLoad(addr, sz, blk), nil
}

// Install bytes from src to dst.
func installBytes(src []byte, dst []byte, dstoff uint64, nbit uint64) {
	sz := nbit / 8
	copy(dst[dstoff:dstoff+sz], src[:sz])
}

// Install the bytes of buf into blk. Objects are byte aligned.
func (buf *Buf) Install(blk disk.Block) {
	util.DPrintf(15, "%v: install\n", buf.Addr)
	if buf.Sz%8 != 0 || buf.Addr.Off%8 != 0 {
		panic("Install unsupported\n")
	}
	installBytes(buf.Data, blk, buf.Addr.ByteOff(), buf.Sz)
}

// WriteDirect installs buf into its block on disk and waits for the block to
// be durable. Whole-block bufs are written without reading the block first.
func (buf *Buf) WriteDirect(d disk.Disk) error {
	var blk disk.Block
	if buf.Sz == common.NBITBLOCK {
		blk = buf.Data
	} else {
		b, err := d.Read(buf.Addr.Blkno)
		if err != nil {
			return err
		}
		buf.Install(b)
		blk = b
	}
	return disk.WriteSync(d, buf.Addr.Blkno, blk)
}
