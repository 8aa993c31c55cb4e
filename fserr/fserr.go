// Package fserr provides the filesystem's error values.
//
// Every error returned by the metadata engine carries an FsError kind, stored
// as a merry value next to a stack trace. Upper layers translate the kind to
// an errno with Errno; callers inside the module test it with Is.
//
// This package is implemented on top of the ansel1/merry package:
//
//	https://github.com/ansel1/merry
package fserr

import (
	"fmt"

	"github.com/ansel1/merry"
	"golang.org/x/sys/unix"
)

type FsError int

const (
	SuccessError FsError = iota
	OutOfSpace
	InvalidIdentifier
	NameTooLong
	EmptyName
	NotFound
	NotEmpty
	IOError
	BadSuperblock
	FileExists
	NotDir
	IsDir
	LinkDir
	FileTooLarge
	NotMounted
	InvalidArg
)

var names = map[FsError]string{
	SuccessError:      "success",
	OutOfSpace:        "out of space",
	InvalidIdentifier: "invalid identifier",
	NameTooLong:       "name too long",
	EmptyName:         "empty name",
	NotFound:          "not found",
	NotEmpty:          "directory not empty",
	IOError:           "I/O error",
	BadSuperblock:     "bad superblock",
	FileExists:        "file exists",
	NotDir:            "not a directory",
	IsDir:             "is a directory",
	LinkDir:           "hard link to directory",
	FileTooLarge:      "file too large",
	NotMounted:        "volume not mounted",
	InvalidArg:        "invalid argument",
}

// errnos maps kinds to the errno an upper layer should report. EmptyName
// shares ENOENT with NotFound; the kind keeps them apart.
var errnos = map[FsError]unix.Errno{
	OutOfSpace:        unix.ENOSPC,
	InvalidIdentifier: unix.ESTALE,
	NameTooLong:       unix.ENAMETOOLONG,
	EmptyName:         unix.ENOENT,
	NotFound:          unix.ENOENT,
	NotEmpty:          unix.ENOTEMPTY,
	IOError:           unix.EIO,
	BadSuperblock:     unix.EINVAL,
	FileExists:        unix.EEXIST,
	NotDir:            unix.ENOTDIR,
	IsDir:             unix.EISDIR,
	LinkDir:           unix.EPERM,
	FileTooLarge:      unix.EFBIG,
	NotMounted:        unix.ENODEV,
	InvalidArg:        unix.EINVAL,
}

const kindKey = "fserror"

func (k FsError) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("FsError(%d)", int(k))
}

// Errno is the errno for kind k; zero for SuccessError.
func (k FsError) Errno() unix.Errno {
	return errnos[k]
}

// New creates an error of kind k using the given format string and arguments.
func New(k FsError, format string, a ...interface{}) error {
	msg := fmt.Sprintf(format, a...)
	return merry.WrapSkipping(fmt.Errorf("%s: %s", k, msg), 1).WithValue(kindKey, k)
}

// Wrap annotates err (typically from the storage adapter) with kind k.
// A nil err stays nil.
func Wrap(err error, k FsError) error {
	if err == nil {
		return nil
	}
	return merry.WrapSkipping(err, 1).WithValue(kindKey, k)
}

// Kind extracts the kind of err. Errors that were not built by this package
// report IOError, since they can only come from the storage adapter.
func Kind(err error) FsError {
	if err == nil {
		return SuccessError
	}
	v := merry.Value(err, kindKey)
	if v == nil {
		return IOError
	}
	return v.(FsError)
}

// HasKind reports whether err carries a kind, as opposed to coming from
// outside the filesystem (a flag parser, a config loader).
func HasKind(err error) bool {
	return err != nil && merry.Value(err, kindKey) != nil
}

// Is reports whether err has kind k.
func Is(err error, k FsError) bool {
	return Kind(err) == k
}

// Errno is the errno an upper layer should return for err.
func Errno(err error) unix.Errno {
	return Kind(err).Errno()
}

// Details returns the error message with its stack trace.
func Details(err error) string {
	return merry.Details(err)
}
