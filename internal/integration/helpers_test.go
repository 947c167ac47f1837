//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/adapter/netcdf"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker for the duration of the test.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("adcirc-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

var t0 = time.Date(2008, 9, 13, 0, 0, 0, 0, time.UTC)

// triplet holds the paths of a compound, surge-only, and rivers-only run.
type triplet struct {
	compound, surge, rivers string
}

// writeTriplet writes three 3-node runs with depth 1. In water column height
// the surge deviation per node is {1, 2, 0} and the rivers deviation is
// {4, 3, 0}, so compoundness is {1, 2, 0}.
func writeTriplet(t *testing.T, dir string, times []time.Time) triplet {
	t.Helper()
	write := func(name string, rows [][]float64) string {
		path := filepath.Join(dir, name)
		require.NoError(t, netcdf.WriteFort63(path, netcdf.Fort63{
			Times: times,
			Zeta:  rows,
			Depth: []float64{1, 1, 1},
		}))
		return path
	}
	repeat := func(row []float64) [][]float64 {
		out := make([][]float64, len(times))
		for i := range out {
			out[i] = row
		}
		return out
	}
	return triplet{
		compound: write("compound.nc", repeat([]float64{4, 3, 0})),
		surge:    write("surge.nc", repeat([]float64{3, 1, 0})),
		rivers:   write("rivers.nc", repeat([]float64{0, 0, 0})),
	}
}

func hourly(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = t0.Add(time.Duration(i) * time.Hour)
	}
	return out
}
