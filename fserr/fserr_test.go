package fserr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestNew(t *testing.T) {
	assert := assert.New(t)
	err := New(NotEmpty, "inode %d has %d children", 3, 2)
	assert.True(Is(err, NotEmpty))
	assert.False(Is(err, NotFound))
	assert.Equal(unix.ENOTEMPTY, Errno(err))
	assert.Contains(err.Error(), "directory not empty")
	assert.Contains(err.Error(), "inode 3 has 2 children")
	assert.NotEmpty(Details(err))
}

func TestWrap(t *testing.T) {
	assert := assert.New(t)
	assert.Nil(Wrap(nil, IOError))

	cause := errors.New("disk on fire")
	err := Wrap(cause, IOError)
	assert.True(Is(err, IOError))
	assert.Equal(unix.EIO, Errno(err))
	assert.Contains(err.Error(), "disk on fire")
}

func TestKindDefaults(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(SuccessError, Kind(nil))
	assert.Equal(IOError, Kind(errors.New("plain")), "foreign errors are I/O errors")
	assert.Equal(unix.Errno(0), Errno(nil))
}

func TestHasKind(t *testing.T) {
	assert := assert.New(t)
	assert.False(HasKind(nil))
	assert.False(HasKind(errors.New("plain")))
	assert.True(HasKind(New(InvalidArg, "x")))
	assert.True(HasKind(Wrap(errors.New("plain"), IOError)))
}

func TestEmptyNameDistinct(t *testing.T) {
	e1 := New(EmptyName, "")
	e2 := New(NotFound, "x")
	assert.Equal(t, Errno(e1), Errno(e2), "same errno")
	assert.False(t, Is(e1, NotFound), "different kind")
}
