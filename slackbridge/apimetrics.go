package slackbridge

import (
	"context"
	"time"
	"unicode"

	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var apiMethods = []string{
	"ConnectRTMContext",
	"GetUsersContext",
	"GetConversationsContext",
	"GetUsersInConversationContext",
	"GetTeamInfoContext",
	"PostMessageContext",
	"GetUploadURLExternalContext",
	"CompleteUploadExternalContext",
}

// APIWithTelemetry implements API with all methods wrapped with open telemetry metrics
type APIWithTelemetry struct {
	base               API
	attrs              metric.MeasurementOption
	methodCounters     map[string]metric.Int64Counter
	errCounters        map[string]metric.Int64Counter
	methodTimeMeasures map[string]metric.Int64Histogram
}

// NewAPIWithTelemetry returns an instance of the API decorated with open telemetry timing and count metrics
func NewAPIWithTelemetry(base API, name string, meter metric.Meter) (_d APIWithTelemetry, err error) {
	_d.base = base
	_d.attrs = metric.WithAttributes(attribute.String("name", name))
	_d.methodCounters = make(map[string]metric.Int64Counter)
	_d.errCounters = make(map[string]metric.Int64Counter)
	_d.methodTimeMeasures = make(map[string]metric.Int64Histogram)

	for _, m := range apiMethods {
		if _d.methodCounters[m], err = meter.Int64Counter(metricName(m, "Calls")); err != nil {
			return _d, err
		}

		if _d.errCounters[m], err = meter.Int64Counter(metricName(m, "Errors")); err != nil {
			return _d, err
		}

		if _d.methodTimeMeasures[m], err = meter.Int64Histogram(metricName(m, "ProcessingTimeMillis"), metric.WithUnit("ms")); err != nil {
			return _d, err
		}
	}

	return _d, nil
}

func metricName(method string, suffix string) string {
	n := []rune("slackAPI_" + method + "_" + suffix)
	n[0] = unicode.ToLower(n[0])
	return string(n)
}

func (_d APIWithTelemetry) record(ctx context.Context, method string, start time.Time, err error) {
	if err != nil {
		_d.errCounters[method].Add(ctx, 1, _d.attrs)
	}

	_d.methodCounters[method].Add(ctx, 1, _d.attrs)
	_d.methodTimeMeasures[method].Record(ctx, time.Since(start).Milliseconds(), _d.attrs)
}

// ConnectRTMContext implements API
func (_d APIWithTelemetry) ConnectRTMContext(ctx context.Context) (info *slack.Info, websocketURL string, err error) {
	defer func(start time.Time) { _d.record(ctx, "ConnectRTMContext", start, err) }(time.Now())
	return _d.base.ConnectRTMContext(ctx)
}

// GetUsersContext implements API
func (_d APIWithTelemetry) GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) (users []slack.User, err error) {
	defer func(start time.Time) { _d.record(ctx, "GetUsersContext", start, err) }(time.Now())
	return _d.base.GetUsersContext(ctx, options...)
}

// GetConversationsContext implements API
func (_d APIWithTelemetry) GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) (channels []slack.Channel, nextCursor string, err error) {
	defer func(start time.Time) { _d.record(ctx, "GetConversationsContext", start, err) }(time.Now())
	return _d.base.GetConversationsContext(ctx, params)
}

// GetUsersInConversationContext implements API
func (_d APIWithTelemetry) GetUsersInConversationContext(ctx context.Context, params *slack.GetUsersInConversationParameters) (members []string, nextCursor string, err error) {
	defer func(start time.Time) { _d.record(ctx, "GetUsersInConversationContext", start, err) }(time.Now())
	return _d.base.GetUsersInConversationContext(ctx, params)
}

// GetTeamInfoContext implements API
func (_d APIWithTelemetry) GetTeamInfoContext(ctx context.Context) (team *slack.TeamInfo, err error) {
	defer func(start time.Time) { _d.record(ctx, "GetTeamInfoContext", start, err) }(time.Now())
	return _d.base.GetTeamInfoContext(ctx)
}

// PostMessageContext implements API
func (_d APIWithTelemetry) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (rChannelID string, rTimestamp string, err error) {
	defer func(start time.Time) { _d.record(ctx, "PostMessageContext", start, err) }(time.Now())
	return _d.base.PostMessageContext(ctx, channelID, options...)
}

// GetUploadURLExternalContext implements API
func (_d APIWithTelemetry) GetUploadURLExternalContext(ctx context.Context, params slack.GetUploadURLExternalParameters) (resp *slack.GetUploadURLExternalResponse, err error) {
	defer func(start time.Time) { _d.record(ctx, "GetUploadURLExternalContext", start, err) }(time.Now())
	return _d.base.GetUploadURLExternalContext(ctx, params)
}

// CompleteUploadExternalContext implements API
func (_d APIWithTelemetry) CompleteUploadExternalContext(ctx context.Context, params slack.CompleteUploadExternalParameters) (resp *slack.CompleteUploadExternalResponse, err error) {
	defer func(start time.Time) { _d.record(ctx, "CompleteUploadExternalContext", start, err) }(time.Now())
	return _d.base.CompleteUploadExternalContext(ctx, params)
}
