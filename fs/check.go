package fs

import (
	"fmt"

	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/dir"
	"github.com/mit-pdos/go-simplefs/inode"
)

// Check verifies the volume's structural invariants and returns one line per
// violation. An empty result means the volume is consistent. Records of
// resident handles are taken from the handle, since they may be newer than
// the table.
func (v *Volume) Check() ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkMounted(); err != nil {
		return nil, err
	}

	var problems []string
	report := func(format string, a ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, a...))
	}

	records := make(map[common.Inum]inode.Inode)
	owner := make(map[common.Bnum]common.Inum)
	var allocated uint64
	for inum := common.ROOTINUM; inum <= common.LASTINUM; inum++ {
		var ip inode.Inode
		if h := v.lookupHandle(inum); h != nil {
			h.lock()
			ip = *h.ip
			h.unlock()
		} else {
			rip, err := inode.Read(v.d, inum)
			if err != nil {
				return nil, err
			}
			ip = *rip
		}
		free := v.super.InumFree(inum)
		if free {
			if ip.Kind() != inode.KindFree || ip.Nlink != 0 || ip.DataBlock != common.NULLBNUM {
				report("inode %d is free in the bitmap but its record is %v", inum, &ip)
			}
			continue
		}
		allocated++
		if !ip.Kind().Valid() || ip.Inum != inum {
			report("inode %d is allocated but its record is %v", inum, &ip)
			continue
		}
		records[inum] = ip
		if !v.super.IsDataBlock(ip.DataBlock) {
			report("inode %d has block %d outside the data region", inum, ip.DataBlock)
			continue
		}
		if v.super.BlockFree(ip.DataBlock) {
			report("inode %d uses block %d which is free in the bitmap", inum, ip.DataBlock)
		}
		if o, ok := owner[ip.DataBlock]; ok {
			report("block %d is shared by inodes %d and %d", ip.DataBlock, o, inum)
		}
		owner[ip.DataBlock] = inum
		if ip.IsDir() && ip.Size > common.NDIRENT {
			report("directory %d claims %d entries", inum, ip.Size)
		}
	}
	if allocated != v.super.InodesCount {
		report("superblock counts %d inodes, bitmap has %d", v.super.InodesCount, allocated)
	}
	for bn := common.DATASTART; bn < common.DATAEND; bn++ {
		if _, ok := owner[bn]; !ok && !v.super.BlockFree(bn) {
			report("block %d is allocated but unowned", bn)
		}
	}

	refs := make(map[common.Inum]uint64)
	for inum, ip := range records {
		if !ip.IsDir() || ip.Size > common.NDIRENT {
			continue
		}
		ents, err := dir.List(v.d, &ip)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		for i, de := range ents {
			if de.Name == "" {
				report("directory %d slot %d has an empty name", inum, i)
			}
			if seen[de.Name] {
				report("directory %d has %q twice", inum, de.Name)
			}
			seen[de.Name] = true
			if _, ok := records[de.Inum]; !ok {
				report("directory %d entry %q refers to unallocated inode %d", inum, de.Name, de.Inum)
				continue
			}
			refs[de.Inum]++
		}
	}

	for inum, ip := range records {
		n := refs[inum]
		if inum == common.ROOTINUM {
			if n != 0 {
				report("root is referenced by %d entries", n)
			}
			continue
		}
		if ip.IsDir() && n > 1 {
			report("directory %d has %d entries", inum, n)
		}
		if uint64(ip.Nlink) != n {
			report("inode %d has nlink %d but %d entries", inum, ip.Nlink, n)
		}
		if n == 0 && v.lookupHandle(inum) == nil {
			report("inode %d is orphaned", inum)
		}
	}
	return problems, nil
}
