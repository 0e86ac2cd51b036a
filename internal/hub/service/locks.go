package service

import (
	"hash/fnv"
	"sync"

	"bridgehub/pkg/domain"
)

// numWalletShards spreads per-wallet critical sections over a fixed set of
// mutexes so unrelated wallets rarely contend.
const numWalletShards = 64

// walletLocks serializes read-modify-write sequences on one wallet, such as
// the daily limit check followed by the volume increment.
type walletLocks struct {
	shards [numWalletShards]sync.Mutex
}

func (l *walletLocks) lock(owner domain.Identity) func() {
	h := fnv.New32a()
	h.Write(owner[:])
	m := &l.shards[h.Sum32()%numWalletShards]
	m.Lock()
	return m.Unlock
}
