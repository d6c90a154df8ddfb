// Package toggle provides feature toggles stored in Redis.
package toggle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// EnabledToggle switches the income stage on or off.
const EnabledToggle = "dp-datalaster-inntekt.enabled"

// Strategies.
const (
	StrategyDefault   = "default"
	StrategyByCluster = "byCluster"
)

// Checker answers whether a toggle is on.
type Checker interface {
	IsEnabled(ctx context.Context, name string) (bool, error)
}

// Toggle is a stored feature toggle.
type Toggle struct {
	Name     string   `json:"name" yaml:"name"`
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Strategy string   `json:"strategy" yaml:"strategy"`
	Clusters []string `json:"clusters,omitempty" yaml:"clusters,omitempty"`
}

// ActiveIn reports whether t is on for a service running in cluster.
func (t Toggle) ActiveIn(cluster string) bool {
	if !t.Enabled {
		return false
	}
	switch t.Strategy {
	case "", StrategyDefault:
		return true
	case StrategyByCluster:
		return ByCluster(t.Clusters, cluster)
	default:
		return false
	}
}

// ByCluster is on when clusters lists cluster.
func ByCluster(clusters []string, cluster string) bool {
	for _, c := range clusters {
		if c == cluster {
			return true
		}
	}
	return false
}

// ParseClusters splits a comma-separated cluster parameter.
func ParseClusters(param string) []string {
	if strings.TrimSpace(param) == "" {
		return nil
	}
	parts := strings.Split(param, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RedisStore keeps toggles as hashes under "toggle:<name>".
type RedisStore struct {
	redis          *redis.Client
	cluster        string
	defaultEnabled bool
}

// NewRedisStore creates a store evaluating toggles for cluster.
// Toggles that were never stored evaluate to defaultEnabled.
func NewRedisStore(client *redis.Client, cluster string, defaultEnabled bool) *RedisStore {
	return &RedisStore{
		redis:          client,
		cluster:        cluster,
		defaultEnabled: defaultEnabled,
	}
}

func (s *RedisStore) key(name string) string {
	return "toggle:" + name
}

// Get loads a toggle. found is false when it was never stored.
func (s *RedisStore) Get(ctx context.Context, name string) (t Toggle, found bool, err error) {
	if s == nil || s.redis == nil {
		return Toggle{}, false, errors.New("toggle store not configured")
	}

	fields, err := s.redis.HGetAll(ctx, s.key(name)).Result()
	if err != nil {
		return Toggle{}, false, fmt.Errorf("failed to get toggle %s: %w", name, err)
	}
	if len(fields) == 0 {
		return Toggle{Name: name}, false, nil
	}

	enabled, err := strconv.ParseBool(fields["enabled"])
	if err != nil {
		return Toggle{}, true, fmt.Errorf("toggle %s has invalid enabled value %q", name, fields["enabled"])
	}

	return Toggle{
		Name:     name,
		Enabled:  enabled,
		Strategy: fields["strategy"],
		Clusters: ParseClusters(fields["cluster"]),
	}, true, nil
}

// Set stores a toggle.
func (s *RedisStore) Set(ctx context.Context, t Toggle) error {
	if s == nil || s.redis == nil {
		return errors.New("toggle store not configured")
	}
	if t.Name == "" {
		return errors.New("toggle name is required")
	}
	strategy := t.Strategy
	if strategy == "" {
		strategy = StrategyDefault
	}

	err := s.redis.HSet(ctx, s.key(t.Name),
		"enabled", strconv.FormatBool(t.Enabled),
		"strategy", strategy,
		"cluster", strings.Join(t.Clusters, ","),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set toggle %s: %w", t.Name, err)
	}
	return nil
}

// IsEnabled evaluates a toggle for the store's cluster.
func (s *RedisStore) IsEnabled(ctx context.Context, name string) (bool, error) {
	t, found, err := s.Get(ctx, name)
	if err != nil {
		return false, err
	}
	if !found {
		return s.defaultEnabled, nil
	}
	return t.ActiveIn(s.cluster), nil
}

// AlwaysOn is a Checker used when no toggle store is configured.
type AlwaysOn struct{}

func (AlwaysOn) IsEnabled(context.Context, string) (bool, error) {
	return true, nil
}

var (
	_ Checker = (*RedisStore)(nil)
	_ Checker = AlwaysOn{}
)
