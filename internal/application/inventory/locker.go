package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

var _ KeyLocker = (*LocalKeyLocker)(nil)

// LocalKeyLocker bloqueo por llave dentro del proceso. Cada llave es un canal de capacidad 1
// con conteo de referencias; la entrada se elimina cuando nadie la usa.
type LocalKeyLocker struct {
	mu      sync.Mutex
	locks   map[string]*keyLock
	timeout time.Duration
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalKeyLocker construye el locker; timeout <= 0 espera hasta que ctx termine.
func NewLocalKeyLocker(timeout time.Duration) *LocalKeyLocker {
	return &LocalKeyLocker{locks: make(map[string]*keyLock), timeout: timeout}
}

// Lock adquiere las llaves (sin duplicados, en orden lexicográfico para evitar interbloqueos).
func (l *LocalKeyLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	ordered := SortedUnique(keys)
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	held := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if err := l.acquire(ctx, k); err != nil {
			l.releaseAll(held)
			return nil, err
		}
		held = append(held, k)
	}
	var once sync.Once
	return func() { once.Do(func() { l.releaseAll(held) }) }, nil
}

func (l *LocalKeyLocker) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(key)
		return fmt.Errorf("%w: llave %s ocupada", domain.ErrConcurrencyConflict, key)
	}
}

func (l *LocalKeyLocker) releaseAll(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		kl := l.locks[keys[i]]
		l.mu.Unlock()
		<-kl.ch
		l.unref(keys[i])
	}
}

func (l *LocalKeyLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl := l.locks[key]
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// SortedUnique copia ordenada y sin duplicados de las llaves.
func SortedUnique(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
