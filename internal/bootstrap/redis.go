package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/vibolsen/campus-portal/config"
	redisadapter "github.com/vibolsen/campus-portal/internal/adapters/redis"
)

// RevocationRedis is the Redis deployment holding logged-out session ids.
// It doubles as the /healthz "redis" check.
type RevocationRedis struct {
	Client redis.UniversalClient
	Prefix string
	Mode   string // direct, sentinel or cluster
}

// ConnectRevocationRedis dials the configured deployment and checks it answers.
func ConnectRevocationRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*RevocationRedis, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rr, err := newRevocationRedis(cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rr.PingContext(pingCtx); err != nil {
		if closeErr := rr.Client.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return nil, fmt.Errorf("ping revocation redis (%s): %w", rr.Mode, err)
	}
	logger.InfoContext(ctx, "revocation store connected", "mode", rr.Mode, "prefix", rr.Prefix)
	return rr, nil
}

func newRevocationRedis(cfg config.RedisConfig) (*RevocationRedis, error) {
	// An empty prefix falls back to the store's default.
	rr := &RevocationRedis{Prefix: strings.TrimSpace(cfg.KeyPrefix)}

	switch {
	case cfg.UseCluster:
		nodes := nonEmpty(cfg.ClusterNodes)
		if len(nodes) == 0 {
			return nil, errors.New("REDIS_CLUSTER_NODES is required with REDIS_USE_CLUSTER")
		}
		rr.Mode = "cluster"
		rr.Client = redis.NewClusterClient(&redis.ClusterOptions{Addrs: nodes, Password: cfg.Password})
	case cfg.UseSentinel:
		nodes := nonEmpty(cfg.SentinelNodes)
		if len(nodes) == 0 || strings.TrimSpace(cfg.SentinelMasterName) == "" {
			return nil, errors.New("REDIS_SENTINEL_NODES and REDIS_SENTINEL_MASTER_NAME are required with REDIS_USE_SENTINEL")
		}
		rr.Mode = "sentinel"
		rr.Client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       cfg.SentinelMasterName,
			SentinelAddrs:    nodes,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
		})
	default:
		opts, err := directRedisOptions(cfg)
		if err != nil {
			return nil, err
		}
		rr.Mode = "direct"
		rr.Client = redis.NewClient(opts)
	}
	return rr, nil
}

// directRedisOptions accepts a redis:// or rediss:// URL or a bare host:port.
func directRedisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("REDIS_URI is required")
	}
	if !strings.Contains(uri, "://") {
		return &redis.Options{Addr: uri, Password: cfg.Password}, nil
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URI: %w", err)
	}
	if opts.Password == "" {
		opts.Password = cfg.Password
	}
	return opts, nil
}

// PingContext implements the health check contract.
func (r *RevocationRedis) PingContext(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// Store returns the revocation list backed by this deployment.
func (r *RevocationRedis) Store() *redisadapter.RevocationStore {
	return redisadapter.NewRevocationStoreWithPrefix(r.Client, r.Prefix)
}

// Close releases the client.
func (r *RevocationRedis) Close() error { return r.Client.Close() }

func nonEmpty(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
