package datastoredb

import (
	"context"
	"time"

	"cloud.google.com/go/datastore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// datastorerWithTelemetry implements datastorer with all methods wrapped with open telemetry metrics
type datastorerWithTelemetry struct {
	base               datastorer
	attrs              metric.MeasurementOption
	methodCounters     map[string]metric.Int64Counter
	errCounters        map[string]metric.Int64Counter
	methodTimeMeasures map[string]metric.Int64Histogram
}

// newDatastorerWithTelemetry returns the datastorer decorated with open telemetry timing and count metrics
func newDatastorerWithTelemetry(base datastorer, name string, meter metric.Meter) (_d datastorerWithTelemetry, err error) {
	_d.base = base
	_d.attrs = metric.WithAttributes(attribute.String("name", name))
	_d.methodCounters = make(map[string]metric.Int64Counter)
	_d.errCounters = make(map[string]metric.Int64Counter)
	_d.methodTimeMeasures = make(map[string]metric.Int64Histogram)

	for _, m := range []string{"close", "delete", "get", "getAll", "put", "connect"} {
		if _d.methodCounters[m], err = meter.Int64Counter("datastorer_" + m + "_Calls"); err != nil {
			return _d, err
		}

		if _d.errCounters[m], err = meter.Int64Counter("datastorer_" + m + "_Errors"); err != nil {
			return _d, err
		}

		if _d.methodTimeMeasures[m], err = meter.Int64Histogram("datastorer_"+m+"_ProcessingTimeMillis", metric.WithUnit("ms")); err != nil {
			return _d, err
		}
	}

	return _d, nil
}

// record counts a call and its latency. Missing entities are expected and not counted as errors
func (_d datastorerWithTelemetry) record(method string, start time.Time, err error) {
	ctx := context.Background()
	if err != nil && err != datastore.ErrNoSuchEntity {
		_d.errCounters[method].Add(ctx, 1, _d.attrs)
	}

	_d.methodCounters[method].Add(ctx, 1, _d.attrs)
	_d.methodTimeMeasures[method].Record(ctx, time.Since(start).Milliseconds(), _d.attrs)
}

// Close implements datastorer
func (_d datastorerWithTelemetry) Close() (err error) {
	defer func(start time.Time) { _d.record("close", start, err) }(time.Now())
	return _d.base.Close()
}

// Delete implements datastorer
func (_d datastorerWithTelemetry) Delete(ctx context.Context, k *datastore.Key) (err error) {
	defer func(start time.Time) { _d.record("delete", start, err) }(time.Now())
	return _d.base.Delete(ctx, k)
}

// Get implements datastorer
func (_d datastorerWithTelemetry) Get(ctx context.Context, k *datastore.Key, dest interface{}) (err error) {
	defer func(start time.Time) { _d.record("get", start, err) }(time.Now())
	return _d.base.Get(ctx, k, dest)
}

// GetAll implements datastorer
func (_d datastorerWithTelemetry) GetAll(ctx context.Context, query *datastore.Query, dest interface{}) (keys []*datastore.Key, err error) {
	defer func(start time.Time) { _d.record("getAll", start, err) }(time.Now())
	return _d.base.GetAll(ctx, query, dest)
}

// Put implements datastorer
func (_d datastorerWithTelemetry) Put(ctx context.Context, k *datastore.Key, v interface{}) (key *datastore.Key, err error) {
	defer func(start time.Time) { _d.record("put", start, err) }(time.Now())
	return _d.base.Put(ctx, k, v)
}

// connect implements datastorer
func (_d datastorerWithTelemetry) connect() (err error) {
	defer func(start time.Time) { _d.record("connect", start, err) }(time.Now())
	return _d.base.connect()
}
