package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"

	"github.com/jhoicas/stock-ledger/pkg/config"
)

const (
	defaultPort = "5432"
	publicDNS   = "8.8.8.8:53"
)

// ErrNoIPv4 el host no tiene dirección IPv4.
var ErrNoIPv4 = errors.New("sin dirección IPv4")

// PoolConfig traduce DBConfig a la configuración de pgxpool. Con Resolver, el DSN y cada dial
// usan la IPv4 del host (Docker suele no tener IPv6 y Supabase puede resolver solo AAAA).
type PoolConfig struct {
	DB       config.DBConfig
	Resolver *IPv4Resolver
}

// NewPool abre el pool del libro de stock, verifica la conexión y aplica el esquema si
// AutoMigrate está activo.
func NewPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	pc, err := PoolConfig{DB: cfg, Resolver: DefaultIPv4Resolver()}.Build(ctx)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	if cfg.AutoMigrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return pool, nil
}

// Build arma la configuración sin abrir conexiones.
func (p PoolConfig) Build(ctx context.Context) (*pgxpool.Config, error) {
	dsn := p.DB.ConnectionString()
	if p.Resolver != nil {
		dsn = p.Resolver.RewriteDSN(ctx, dsn)
	}
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	if p.Resolver != nil {
		pc.ConnConfig.DialFunc = p.Resolver.Dial
	}

	maxConns := max(p.DB.MaxConns, 1)
	pc.MaxConns = int32(maxConns)
	pc.MinConns = int32(max(min(p.DB.MinConns, maxConns), 0))
	pc.MaxConnLifetime = time.Hour
	pc.MaxConnIdleTime = 30 * time.Minute
	pc.HealthCheckPeriod = time.Minute

	// NUMERIC -> shopspring/decimal (totales de ventas y ajustes)
	pc.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	return pc, nil
}

type lookupFunc func(ctx context.Context, network, host string) ([]net.IP, error)

// IPv4Resolver resuelve hosts a IPv4 probando cada lookup en orden.
type IPv4Resolver struct {
	lookups []lookupFunc
	dialer  net.Dialer
}

// DefaultIPv4Resolver usa el resolver del sistema y, si falla, un DNS público por UDP
// (dentro de contenedores el DNS local puede devolver solo IPv6).
func DefaultIPv4Resolver() *IPv4Resolver {
	public := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "udp", publicDNS)
		},
	}
	return &IPv4Resolver{lookups: []lookupFunc{net.DefaultResolver.LookupIP, public.LookupIP}}
}

// Resolve devuelve la IPv4 de host. Una IP literal se devuelve tal cual si es IPv4.
func (r *IPv4Resolver) Resolve(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() == nil {
			return "", fmt.Errorf("%w: %s es IPv6", ErrNoIPv4, host)
		}
		return host, nil
	}
	lastErr := fmt.Errorf("%w: %s", ErrNoIPv4, host)
	for _, lookup := range r.lookups {
		ips, err := lookup(ctx, "ip4", host)
		if err != nil {
			lastErr = err
			continue
		}
		for _, ip := range ips {
			if ip.To4() != nil {
				return ip.String(), nil
			}
		}
	}
	return "", lastErr
}

// RewriteDSN cambia el host de un DSN en forma URL por su IPv4. Si no se puede, deja el DSN igual.
func (r *IPv4Resolver) RewriteDSN(ctx context.Context, dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Hostname() == "" {
		return dsn
	}
	ipv4, err := r.Resolve(ctx, u.Hostname())
	if err != nil {
		return dsn
	}
	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	u.Host = net.JoinHostPort(ipv4, port)
	return u.String()
}

// Dial conecta por tcp4 cuando hay IPv4; si no, usa la red pedida por pgx.
func (r *IPv4Resolver) Dial(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ipv4, err := r.Resolve(ctx, host)
	if err != nil {
		return r.dialer.DialContext(ctx, network, addr)
	}
	return r.dialer.DialContext(ctx, "tcp4", net.JoinHostPort(ipv4, port))
}
