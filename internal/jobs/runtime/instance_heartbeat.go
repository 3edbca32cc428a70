package runtime

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	InstanceHeartbeatKeyPrefix = "cloudranges:instance:"
	DefaultHeartbeatInterval   = 15 * time.Second
	DefaultHeartbeatTTL        = 30 * time.Second
)

// StartInstanceHeartbeat keeps a TTL key alive in redis for the given
// instance id so operators can see which instances are up. The id is
// handed in by the caller; this package keeps no identity of its own.
func StartInstanceHeartbeat(ctx context.Context, client *redis.Client, instanceID, keyPrefix string, interval, ttl time.Duration) {
	if ctx == nil {
		ctx = context.Background()
	}
	heartbeatKey := keyPrefix + instanceID

	sendHeartbeat := func() {
		if err := client.SetEx(ctx, heartbeatKey, "alive", ttl).Err(); err != nil {
			log.Error("Failed to update instance heartbeat", "key", heartbeatKey, "error", err)
		}
	}

	sendHeartbeat()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sendHeartbeat()
		}
	}
}

func LaunchInstanceHeartbeat(parent context.Context, client *redis.Client, instanceID string) context.CancelFunc {
	ctx, cancel := context.WithCancel(parent)
	go StartInstanceHeartbeat(ctx, client, instanceID, InstanceHeartbeatKeyPrefix, DefaultHeartbeatInterval, DefaultHeartbeatTTL)
	return cancel
}

func CountActiveInstances(ctx context.Context, client *redis.Client) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	keys, err := client.Keys(ctx, InstanceHeartbeatKeyPrefix+"*").Result()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
