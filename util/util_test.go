package util

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestMin(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint64(2), Min(2, 3))
	assert.Equal(uint64(2), Min(3, 2))
	assert.Equal(uint64(2), Min(2, 2))
}

func TestSumOverflows(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(false, SumOverflows(1<<31, 1<<31))
	assert.Equal(false, SumOverflows(1<<64-2, 1))
	assert.Equal(false, SumOverflows(1, 1<<64-2))
	assert.Equal(false, SumOverflows(1<<32, 1<<32))

	assert.Equal(true, SumOverflows(1, 1<<64-1))
	assert.Equal(true, SumOverflows(1<<64-1, 1))
	assert.Equal(true, SumOverflows(2, 1<<64-1))
	assert.Equal(true, SumOverflows(1<<63, 1<<63))
}

func TestCloneByteSlice(t *testing.T) {
	s := []byte{1, 2, 3}
	c := CloneByteSlice(s)
	c[0] = 9
	assert.Equal(t, byte(1), s[0], "clone should not alias")
	assert.Equal(t, []byte{9, 2, 3}, c)
}

func TestDPrintfLevels(t *testing.T) {
	assert := assert.New(t)
	old := Debug
	defer SetDebug(old)

	var out bytes.Buffer
	logger.SetOutput(&out)
	defer logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	SetDebug(1)
	DPrintf(1, "shown %d", 1)
	DPrintf(3, "hidden %d", 3)
	assert.Contains(out.String(), "shown 1")
	assert.NotContains(out.String(), "hidden 3")

	out.Reset()
	DPrintf(0, "with newline %d\n", 7)
	assert.Contains(out.String(), `msg="with newline 7"`)
	assert.NotContains(out.String(), `\n"`)

	out.Reset()
	SetDebug(10)
	DPrintf(10, "trace %s", "on")
	assert.Contains(out.String(), "trace on")
}
