package hangouts

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HostWithTelemetry implements Host with all methods wrapped with open telemetry metrics
type HostWithTelemetry struct {
	base               Host
	attrs              metric.MeasurementOption
	methodCounters     map[string]metric.Int64Counter
	errCounters        map[string]metric.Int64Counter
	methodTimeMeasures map[string]metric.Int64Histogram
}

// NewHostWithTelemetry returns an instance of the Host decorated with open telemetry timing and count metrics
func NewHostWithTelemetry(base Host, name string, meter metric.Meter) (_d HostWithTelemetry, err error) {
	_d.base = base
	_d.attrs = metric.WithAttributes(attribute.String("name", name))
	_d.methodCounters = make(map[string]metric.Int64Counter)
	_d.errCounters = make(map[string]metric.Int64Counter)
	_d.methodTimeMeasures = make(map[string]metric.Int64Histogram)

	for _, m := range []string{"sendMessage", "uploadImage"} {
		if _d.methodCounters[m], err = meter.Int64Counter("host_" + m + "_Calls"); err != nil {
			return _d, err
		}

		if _d.errCounters[m], err = meter.Int64Counter("host_" + m + "_Errors"); err != nil {
			return _d, err
		}

		if _d.methodTimeMeasures[m], err = meter.Int64Histogram("host_"+m+"_ProcessingTimeMillis", metric.WithUnit("ms")); err != nil {
			return _d, err
		}
	}

	return _d, nil
}

func (_d HostWithTelemetry) record(ctx context.Context, method string, start time.Time, err error) {
	if err != nil {
		_d.errCounters[method].Add(ctx, 1, _d.attrs)
	}

	_d.methodCounters[method].Add(ctx, 1, _d.attrs)
	_d.methodTimeMeasures[method].Record(ctx, time.Since(start).Milliseconds(), _d.attrs)
}

// SendMessage implements Host
func (_d HostWithTelemetry) SendMessage(ctx context.Context, conversationID string, text string, imageID string, passthru Passthru) (err error) {
	defer func(start time.Time) { _d.record(ctx, "sendMessage", start, err) }(time.Now())
	return _d.base.SendMessage(ctx, conversationID, text, imageID, passthru)
}

// UploadImage implements Host
func (_d HostWithTelemetry) UploadImage(ctx context.Context, data []byte, filename string) (imageID string, err error) {
	defer func(start time.Time) { _d.record(ctx, "uploadImage", start, err) }(time.Now())
	return _d.base.UploadImage(ctx, data, filename)
}
