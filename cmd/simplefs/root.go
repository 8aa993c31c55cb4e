package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mit-pdos/go-simplefs/disk"
	"github.com/mit-pdos/go-simplefs/fs"
	"github.com/mit-pdos/go-simplefs/fserr"
	"github.com/mit-pdos/go-simplefs/util"
)

var (
	config *Config
	cfgv   = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "simplefs",
	Short: "Format and inspect simplefs volume images",
	Long: `simplefs operates on a volume image file: a 66-block disk holding a
superblock, one block of metadata records and 64 data blocks.

Paths inside the volume are slash-separated and relative to its root.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := LoadConfig(cfgv)
		if err != nil {
			return err
		}
		config = c
		util.SetDebug(c.Debug)
		if c.LogFormat == "json" {
			util.Logger().SetFormatter(&logrus.JSONFormatter{})
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if util.Debug > 0 {
			fmt.Fprintln(os.Stderr, fserr.Details(err))
		}
		os.Exit(exitCode(err))
	}
}

// exitCode is the errno of a filesystem error, and 1 for anything else.
func exitCode(err error) int {
	if !fserr.HasKind(err) {
		return 1
	}
	return int(fserr.Errno(err))
}

func init() {
	rootCmd.PersistentFlags().StringP("image", "i", "", "volume image file")
	rootCmd.PersistentFlags().Uint64P("debug", "d", 0, "debug level")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	cfgv.BindPFlag("image", rootCmd.PersistentFlags().Lookup("image"))
	cfgv.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	cfgv.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// withVolume mounts the configured image, runs f, and unmounts.
func withVolume(f func(v *fs.Volume, root *fs.Handle) error) error {
	d, err := disk.OpenFileDisk(config.Image)
	if err != nil {
		return err
	}
	defer d.Close()
	v, err := fs.Mount(d)
	if err != nil {
		return err
	}
	root, err := v.Root()
	if err != nil {
		v.Unmount()
		return err
	}
	err = f(v, root)
	root.Release()
	if uerr := v.Unmount(); err == nil {
		err = uerr
	}
	return err
}
