// Package redis adapta Redis como bloqueo distribuido por llave de stock, para varias
// instancias de la API sobre la misma base de datos.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

var _ inventory.KeyLocker = (*KeyLocker)(nil)

const keyPrefix = "stock-ledger:lock:"

// release borra la llave solo si sigue siendo nuestra.
var release = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// KeyLocker SET NX PX con token aleatorio por adquisición.
type KeyLocker struct {
	client  goredis.UniversalClient
	ttl     time.Duration
	timeout time.Duration
	poll    time.Duration
	log     *logger.Logger
}

// NewKeyLocker construye el locker. ttl limita cuánto sobrevive un candado si el proceso muere;
// timeout es la espera máxima por llave antes de devolver ErrConcurrencyConflict.
func NewKeyLocker(client goredis.UniversalClient, ttl, timeout time.Duration, log *logger.Logger) *KeyLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &KeyLocker{client: client, ttl: ttl, timeout: timeout, poll: 15 * time.Millisecond, log: log}
}

// Lock adquiere todas las llaves en orden lexicográfico.
func (l *KeyLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	ordered := inventory.SortedUnique(keys)
	if len(ordered) == 0 {
		return func() {}, nil
	}
	token := uuid.NewString()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	held := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if err := l.acquire(ctx, keyPrefix+k, token); err != nil {
			l.releaseAll(held, token)
			return nil, err
		}
		held = append(held, keyPrefix+k)
	}
	return func() { l.releaseAll(held, token) }, nil
}

func (l *KeyLocker) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: llave %s ocupada", domain.ErrConcurrencyConflict, key)
		case <-ticker.C:
		}
	}
}

// releaseAll usa un contexto propio: la liberación debe ocurrir aunque la petición se haya cancelado.
func (l *KeyLocker) releaseAll(keys []string, token string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(keys) - 1; i >= 0; i-- {
		if err := release.Run(ctx, l.client, []string{keys[i]}, token).Err(); err != nil && l.log != nil {
			l.log.Warn().Err(err).Str("key", keys[i]).Msg("no se pudo liberar candado redis; expira por TTL")
		}
	}
}

// NewClient cliente Redis a partir de la configuración.
func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
}
