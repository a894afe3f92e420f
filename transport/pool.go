package transport

import (
	"net/http"
	"sync"
	"time"
)

// The underlying http.Transport is shared by every client in the process:
// the first client constructed initializes it, the last one closed tears it
// down. Init and teardown are serialized with a process-wide mutex and must
// never be re-entered from worker goroutines.
var (
	poolMu     sync.Mutex
	poolRefs   int
	sharedPool *http.Transport
)

func acquirePool() *http.Transport {
	poolMu.Lock()
	defer poolMu.Unlock()
	if poolRefs == 0 {
		sharedPool = &http.Transport{
			MaxIdleConns:        256,
			MaxIdleConnsPerHost: 64,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	poolRefs++
	return sharedPool
}

func releasePool() {
	poolMu.Lock()
	defer poolMu.Unlock()
	if poolRefs == 0 {
		return
	}
	poolRefs--
	if poolRefs == 0 {
		sharedPool.CloseIdleConnections()
		sharedPool = nil
	}
}
