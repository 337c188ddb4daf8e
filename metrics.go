package chatrelay

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Drop reasons recorded on the msgDropped counter
const (
	dropSkip           = "skip"
	dropParse          = "parse"
	dropUnbridged      = "unbridged"
	dropJoinLeave      = "joinleave"
	dropLoop           = "loop"
	dropAlreadyRelayed = "already_relayed"
)

// instrumenter holds data for core instrumentation
type instrumenter struct {
	appName     string
	coreMetrics coreMetrics
}

// coreMetrics holds core relay metrics
type coreMetrics struct {
	msgsSeen                  metric.Int64Counter
	msgsDropped               metric.Int64Counter
	tasksCreated              metric.Int64Counter
	deliveryErrors            metric.Int64Counter
	deliveryLatencyMillis     metric.Int64Histogram
	taskDispatchLatencyMillis metric.Int64Histogram
}

// newInstrumenter creates a new core instrumenter
func newInstrumenter(appName string, meter metric.Meter) (ins *instrumenter, err error) {
	ins = new(instrumenter)
	ins.appName = appName

	if ins.coreMetrics.msgsSeen, err = meter.Int64Counter("msgSeen"); err != nil {
		return nil, err
	}

	if ins.coreMetrics.msgsDropped, err = meter.Int64Counter("msgDropped"); err != nil {
		return nil, err
	}

	if ins.coreMetrics.tasksCreated, err = meter.Int64Counter("deliveryTaskCreated"); err != nil {
		return nil, err
	}

	if ins.coreMetrics.deliveryErrors, err = meter.Int64Counter("deliveryErrors"); err != nil {
		return nil, err
	}

	if ins.coreMetrics.deliveryLatencyMillis, err = meter.Int64Histogram("deliveryLatencyMillis", metric.WithUnit("ms")); err != nil {
		return nil, err
	}

	if ins.coreMetrics.taskDispatchLatencyMillis, err = meter.Int64Histogram("taskDispatchLatencyMillis", metric.WithUnit("ms")); err != nil {
		return nil, err
	}

	return ins, nil
}

func (ins *instrumenter) attrs(kv ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(append([]attribute.KeyValue{attribute.String("name", ins.appName)}, kv...)...)
}

func (ins *instrumenter) seen(side Side) {
	ins.coreMetrics.msgsSeen.Add(context.Background(), 1, ins.attrs(attribute.String("side", side.String())))
}

func (ins *instrumenter) dropped(reason string) {
	ins.coreMetrics.msgsDropped.Add(context.Background(), 1, ins.attrs(attribute.String("reason", reason)))
}

func (ins *instrumenter) created(target Side, count int) {
	ins.coreMetrics.tasksCreated.Add(context.Background(), int64(count), ins.attrs(attribute.String("target", target.String())))
}

func (ins *instrumenter) delivered(target Side, d time.Duration, err error) {
	ins.coreMetrics.deliveryLatencyMillis.Record(context.Background(), d.Milliseconds(), ins.attrs(attribute.String("target", target.String())))
	if err != nil {
		ins.coreMetrics.deliveryErrors.Add(context.Background(), 1, ins.attrs(attribute.String("target", target.String())))
	}
}

func (ins *instrumenter) dispatched(d time.Duration) {
	ins.coreMetrics.taskDispatchLatencyMillis.Record(context.Background(), d.Milliseconds(), ins.attrs())
}

type timed func()

// measure returns how long the operation took
func measure(operation timed) (d time.Duration) {
	before := time.Now()

	operation()

	return time.Since(before)
}
