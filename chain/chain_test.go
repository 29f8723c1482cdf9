package chain

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func Test_LockSignerSerializesSameSigner(t *testing.T) {
	addr := common.HexToAddress("0xaaa")

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := LockSigner(addr)
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func Test_LockSignerIndependentSigners(t *testing.T) {
	unlockA := LockSigner(common.HexToAddress("0xa1"))
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := LockSigner(common.HexToAddress("0xb2"))
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different signer blocked")
	}
}
