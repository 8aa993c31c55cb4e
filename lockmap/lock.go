// lockmap is a sharded map of per-object locks.
//
// The API is as if LockMap held a lock for every identifier;
// LockMap.Acquire(inum) acquires the lock associated with inum and
// LockMap.Release(inum) releases it. The volume uses these locks to
// serialize data I/O and writeback of one object handle, which happen
// outside the volume lock.
//
// Only identifiers with a holder or a waiter have state; shard i tracks the
// identifiers with inum % NSHARD == i.
package lockmap

import (
	"sync"

	"github.com/mit-pdos/go-simplefs/common"
)

type lockState struct {
	held    bool
	cond    *sync.Cond
	waiters uint64
}

type lockShard struct {
	mu    *sync.Mutex
	state map[common.Inum]*lockState
}

func mkLockShard() *lockShard {
	mu := new(sync.Mutex)
	return &lockShard{
		mu:    mu,
		state: make(map[common.Inum]*lockState),
	}
}

func (shard *lockShard) acquire(inum common.Inum) {
	shard.mu.Lock()
	defer shard.mu.Unlock()
	state, ok := shard.state[inum]
	if !ok {
		state = &lockState{cond: sync.NewCond(shard.mu)}
		shard.state[inum] = state
	}
	for state.held {
		state.waiters += 1
		state.cond.Wait()
		state.waiters -= 1
	}
	state.held = true
}

func (shard *lockShard) release(inum common.Inum) {
	shard.mu.Lock()
	defer shard.mu.Unlock()
	state, ok := shard.state[inum]
	if !ok || !state.held {
		panic("release of unheld lock")
	}
	state.held = false
	if state.waiters > 0 {
		state.cond.Signal()
	} else {
		delete(shard.state, inum)
	}
}

func (shard *lockShard) size() int {
	shard.mu.Lock()
	defer shard.mu.Unlock()
	return len(shard.state)
}

const NSHARD uint64 = 7

type LockMap struct {
	shards []*lockShard
}

func MkLockMap() *LockMap {
	var shards []*lockShard
	for i := uint64(0); i < NSHARD; i++ {
		shards = append(shards, mkLockShard())
	}
	return &LockMap{shards: shards}
}

func (lmap *LockMap) shard(inum common.Inum) *lockShard {
	return lmap.shards[uint64(inum)%NSHARD]
}

func (lmap *LockMap) Acquire(inum common.Inum) {
	lmap.shard(inum).acquire(inum)
}

func (lmap *LockMap) Release(inum common.Inum) {
	lmap.shard(inum).release(inum)
}

// Live reports how many identifiers currently have lock state.
func (lmap *LockMap) Live() int {
	n := 0
	for _, s := range lmap.shards {
		n += s.size()
	}
	return n
}
