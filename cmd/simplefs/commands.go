package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mit-pdos/go-simplefs/common"
	"github.com/mit-pdos/go-simplefs/disk"
	"github.com/mit-pdos/go-simplefs/fs"
	"github.com/mit-pdos/go-simplefs/fserr"
	"github.com/mit-pdos/go-simplefs/inode"
	"github.com/mit-pdos/go-simplefs/mkfs"
	"github.com/mit-pdos/go-simplefs/util"
)

var mkfsCmd = &cobra.Command{
	Use:   "mkfs",
	Short: "Create a new empty volume image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := disk.NewFileDisk(config.Image, config.Blocks)
		if err != nil {
			return err
		}
		defer d.Close()
		if err := mkfs.Format(d); err != nil {
			return err
		}
		util.Logger().Infof("formatted %s (%d blocks)", config.Image, config.Blocks)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show volume usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVolume(func(v *fs.Volume, root *fs.Handle) error {
			st := v.Statfs()
			fmt.Printf("magic:       %#x\n", st.Magic)
			fmt.Printf("block size:  %d\n", st.BlockSize)
			fmt.Printf("name max:    %d\n", st.NameMax)
			fmt.Printf("objects:     %d (%d free)\n", st.Objects, st.FreeInodes)
			fmt.Printf("data blocks: %d (%d free)\n", st.Blocks, st.FreeBlocks)
			fmt.Printf("imap:        %016x\n", st.Imap)
			fmt.Printf("dmap:        %016x\n", st.Dmap)
			return nil
		})
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/"
		if len(args) == 1 {
			path = args[0]
		}
		return withVolume(func(v *fs.Volume, root *fs.Handle) error {
			dh, err := walk(v, components(path))
			if err != nil {
				return err
			}
			defer dh.Release()
			ents, err := v.Readdir(dh)
			if err != nil {
				return err
			}
			for _, de := range ents {
				h, err := v.Iget(de.Inum)
				if err != nil {
					return err
				}
				ip := h.Stat()
				fmt.Printf("%4d %-7v %#o %2d %6d %s\n", ip.Inum, ip.Kind(), ip.Perm(), ip.Nlink, h.Size(), de.Name)
				h.Release()
			}
			return nil
		})
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir path",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVolume(func(v *fs.Volume, root *fs.Handle) error {
			dh, name, err := walkParent(v, args[0])
			if err != nil {
				return err
			}
			defer dh.Release()
			h, err := v.Mkdir(dh, name, 0o755)
			if err != nil {
				return err
			}
			return h.Release()
		})
	},
}

var writeCmd = &cobra.Command{
	Use:   "write path [data]",
	Short: "Create a file holding data (or stdin)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		if len(args) == 2 {
			data = []byte(args[1])
		} else {
			b, err := readAllLimited(os.Stdin)
			if err != nil {
				return err
			}
			data = b
		}
		return withVolume(func(v *fs.Volume, root *fs.Handle) error {
			dh, name, err := walkParent(v, args[0])
			if err != nil {
				return err
			}
			defer dh.Release()
			h, err := v.Create(dh, name, 0o644)
			if err != nil {
				return err
			}
			defer h.Release()
			_, err = v.WriteAt(h, 0, data)
			return err
		})
	},
}

var catCmd = &cobra.Command{
	Use:   "cat path",
	Short: "Print a file or symlink target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVolume(func(v *fs.Volume, root *fs.Handle) error {
			h, err := walk(v, components(args[0]))
			if err != nil {
				return err
			}
			defer h.Release()
			if h.Kind() == inode.KindSymlink {
				target, err := v.Readlink(h)
				if err != nil {
					return err
				}
				fmt.Println(target)
				return nil
			}
			data, err := v.ReadAt(h, 0, h.Size())
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm path",
	Short: "Remove a file or symlink",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return removePath(args[0], false)
	},
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir path",
	Short: "Remove an empty directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return removePath(args[0], true)
	},
}

// readAllLimited reads r up to one block; a file never holds more.
func readAllLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(common.BlockSize)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > common.BlockSize {
		return nil, fserr.New(fserr.FileTooLarge, "input exceeds %d bytes", common.BlockSize)
	}
	return data, nil
}

func removePath(path string, isDir bool) error {
	return withVolume(func(v *fs.Volume, root *fs.Handle) error {
		dh, name, err := walkParent(v, path)
		if err != nil {
			return err
		}
		defer dh.Release()
		if isDir {
			return v.Rmdir(dh, name)
		}
		return v.Unlink(dh, name)
	})
}

var lnCmd = &cobra.Command{
	Use:   "ln target path",
	Short: "Make a hard link (or a symlink with -s)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbolic, _ := cmd.Flags().GetBool("symbolic")
		return withVolume(func(v *fs.Volume, root *fs.Handle) error {
			dh, name, err := walkParent(v, args[1])
			if err != nil {
				return err
			}
			defer dh.Release()
			if symbolic {
				h, err := v.Symlink(dh, name, args[0])
				if err != nil {
					return err
				}
				return h.Release()
			}
			target, err := walk(v, components(args[0]))
			if err != nil {
				return err
			}
			defer target.Release()
			return v.Link(target, dh, name)
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the volume's metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVolume(func(v *fs.Volume, root *fs.Handle) error {
			problems, err := v.Check()
			if err != nil {
				return err
			}
			for _, p := range problems {
				fmt.Println(p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d problems found", len(problems))
			}
			fmt.Println("clean")
			return nil
		})
	},
}

func init() {
	lnCmd.Flags().BoolP("symbolic", "s", false, "make a symbolic link")
	rootCmd.AddCommand(mkfsCmd, infoCmd, lsCmd, mkdirCmd, writeCmd, catCmd,
		rmCmd, rmdirCmd, lnCmd, checkCmd)
	mkfsCmd.Flags().Uint64("blocks", 0, "image size in blocks")
	cfgv.BindPFlag("blocks", mkfsCmd.Flags().Lookup("blocks"))
}
