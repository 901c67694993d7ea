package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
	"github.com/irdash/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// stubGateway answers reads from a fixed error and records subscriptions.
type stubGateway struct {
	gateway.Unconfigured
	readErr  error
	onChange func()
}

func (s *stubGateway) Count(context.Context, string, gateway.Filter) (int64, error) {
	return 3, s.readErr
}

func (s *stubGateway) SubscribeToChanges(_ string, onChange func()) (gateway.Subscription, error) {
	s.onChange = onChange
	return gateway.SubscriptionFunc(func() {}), nil
}

func collectSums(t *testing.T, reader *sdkmetric.ManualReader, name string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				out[outcome.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestInstrumentedGateway_CountsCallsByOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader, nil)
	stub := &stubGateway{}
	gw, err := telemetry.NewInstrumentedGateway(stub, mp)
	require.NoError(t, err)
	ctx := context.Background()

	n, err := gw.Count(ctx, gateway.CollectionPerson, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	stub.readErr = shared.NewDataFetchError("count", gateway.CollectionPerson, errors.New("timeout"))
	_, err = gw.Count(ctx, gateway.CollectionPerson, nil)
	assert.ErrorIs(t, err, shared.ErrDataFetch)

	// the embedded unconfigured gateway reports configuration errors
	_, err = gw.FetchAll(ctx, gateway.CollectionItem, nil, gateway.NewestFirst)
	assert.ErrorIs(t, err, shared.ErrConfiguration)

	got := collectSums(t, reader, "irdash.gateway.calls")
	assert.Equal(t, int64(1), got["ok"])
	assert.Equal(t, int64(1), got["DATA_FETCH_ERROR"])
	assert.Equal(t, int64(1), got["CONFIGURATION_ERROR"])
}

func TestInstrumentedGateway_CountsChangeNotifications(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	stub := &stubGateway{}
	gw, err := telemetry.NewInstrumentedGateway(stub, telemetry.NewMeterProviderWithReader(reader, nil))
	require.NoError(t, err)

	called := 0
	_, err = gw.SubscribeToChanges(gateway.CollectionItem, func() { called++ })
	require.NoError(t, err)
	stub.onChange()
	stub.onChange()

	assert.Equal(t, 2, called)
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "irdash.gateway.change_notifications" {
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					total += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), total)
}
