package fulfillment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-fulfillment/internal/config"
	"restaurant-fulfillment/internal/notify"
)

func TestBuildNotifier(t *testing.T) {
	cfg := config.Default()

	cfg.Notifier.Backends = nil
	n, closeFn, err := buildNotifier(cfg, Infra{})
	require.NoError(t, err)
	assert.IsType(t, notify.Nop{}, n)
	closeFn()

	cfg.Notifier.Backends = []string{"redis"}
	_, _, err = buildNotifier(cfg, Infra{})
	assert.ErrorContains(t, err, "needs a redis connection")

	cfg.Notifier.Backends = []string{"kafka"}
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	n, closeFn, err = buildNotifier(cfg, Infra{})
	require.NoError(t, err)
	require.IsType(t, notify.Fanout{}, n)
	assert.Len(t, n.(notify.Fanout), 1)
	closeFn()

	cfg.Notifier.Backends = []string{"pigeon"}
	_, _, err = buildNotifier(cfg, Infra{})
	assert.ErrorContains(t, err, "unknown backend")
}
