package alloc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-simplefs/fserr"
)

func TestPopCnt(t *testing.T) {
	assert.Equal(t, uint64(0), popCnt(0))
	assert.Equal(t, uint64(1), popCnt(1))
	assert.Equal(t, uint64(1), popCnt(2))
	assert.Equal(t, uint64(2), popCnt(3))
	assert.Equal(t, uint64(8), popCnt(255))
	assert.Equal(t, uint64(64), popCnt(^uint64(0)))
}

func TestAlloc(t *testing.T) {
	assert := assert.New(t)
	max := uint64(32)
	a := MkMaxAlloc(2, max)

	assert.Equal(max, a.NumFree(), "everything should be initially free")

	n, err := a.AllocNum()
	assert.NoError(err)
	assert.Equal(uint64(2), n, "first fit starts at the base")

	a.MarkUsed(n + 1)
	n2, err := a.AllocNum()
	assert.NoError(err)
	assert.Equal(n+2, n2, "should not allocate something marked used")

	assert.Equal(max-3, a.NumFree(), "should have used 3 items")

	assert.NoError(a.FreeNum(n))
	assert.NoError(a.FreeNum(n2))
	assert.Equal(max-1, a.NumFree(), "should have freed")

	n3, _ := a.AllocNum()
	assert.Equal(n, n3, "lowest free number is reused")
}

func TestAllocExhausted(t *testing.T) {
	assert := assert.New(t)
	a := MkMaxAlloc(1, NBITS)
	for i := uint64(0); i < NBITS; i++ {
		n, err := a.AllocNum()
		assert.NoError(err)
		assert.Equal(1+i, n)
	}
	assert.Equal(uint64(0), a.Bitmap())
	_, err := a.AllocNum()
	assert.True(fserr.Is(err, fserr.OutOfSpace))
}

func TestFreeErrors(t *testing.T) {
	assert := assert.New(t)
	a := MkMaxAlloc(1, 8)
	assert.True(fserr.Is(a.FreeNum(0), fserr.InvalidIdentifier))
	assert.True(fserr.Is(a.FreeNum(9), fserr.InvalidIdentifier))
	assert.True(fserr.Is(a.FreeNum(3), fserr.InvalidArg), "double free")
	assert.False(a.IsFree(9))
}

func TestBitmapRoundTrip(t *testing.T) {
	a := MkAlloc(2, 64, 0xF0)
	n, _ := a.AllocNum()
	assert.Equal(t, uint64(6), n)
	b := MkAlloc(2, 64, a.Bitmap())
	assert.False(t, b.IsFree(6))
	assert.True(t, b.IsFree(7))
}

// The allocated set is exactly what was allocated and not yet released.
func TestAllocModel(t *testing.T) {
	assert := assert.New(t)
	rnd := rand.New(rand.NewSource(1))
	a := MkMaxAlloc(1, NBITS)
	used := make(map[uint64]bool)
	for step := 0; step < 2000; step++ {
		if rnd.Intn(2) == 0 && uint64(len(used)) < NBITS {
			n, err := a.AllocNum()
			assert.NoError(err)
			assert.False(used[n], "allocated twice: %d", n)
			used[n] = true
		} else if len(used) > 0 {
			for n := range used {
				assert.NoError(a.FreeNum(n))
				delete(used, n)
				break
			}
		}
		for n := uint64(1); n <= NBITS; n++ {
			assert.Equal(!used[n], a.IsFree(n))
		}
	}
	for n := range used {
		a.FreeNum(n)
	}
	n, _ := a.AllocNum()
	assert.Equal(uint64(1), n, "after full release the lowest number comes back")
}
