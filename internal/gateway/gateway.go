// Package gateway connects the orchestrator to the vehicle simulator that
// owns flight dynamics.
package gateway

import (
	"context"
	"time"

	"skywatch-sim/internal/simerr"
	"skywatch-sim/internal/telemetry"
)

// Gateway supplies per-vehicle ground truth and sensor readings.
type Gateway interface {
	Kinematics(ctx context.Context, vehicle string) (KinematicsState, error)
	DistanceSensor(ctx context.Context, sensor, vehicle string) (DistanceSensorData, error)
	IMU(ctx context.Context, sensor, vehicle string) (ImuData, error)
	Lidar(ctx context.Context, sensor, vehicle string) (LidarData, error)
	Close() error
}

// Stepper is implemented by gateways that advance their own world when the
// clock ticks.
type Stepper interface {
	Step(dt time.Duration)
}

// Local serves kinematics from an in-process Generator.
type Local struct {
	gen *telemetry.Generator
}

var (
	_ Gateway = (*Local)(nil)
	_ Stepper = (*Local)(nil)
)

// NewLocal wraps gen.
func NewLocal(gen *telemetry.Generator) *Local {
	return &Local{gen: gen}
}

// Step advances the generated drones.
func (l *Local) Step(dt time.Duration) { l.gen.Step(dt.Seconds()) }

func (l *Local) target(vehicle string) (telemetry.Target, error) {
	t, ok := l.gen.Snapshot(vehicle)
	if !ok {
		return telemetry.Target{}, simerr.NotFound("vehicle %s", vehicle)
	}
	return t, nil
}

func stamp(t telemetry.Target) uint64 { return uint64(t.Timestamp.UnixNano()) }

// Kinematics implements Gateway.
func (l *Local) Kinematics(_ context.Context, vehicle string) (KinematicsState, error) {
	t, err := l.target(vehicle)
	if err != nil {
		return KinematicsState{}, err
	}
	return KinematicsState{
		Position:       fromPosition(t.Position),
		Orientation:    fromOrientation(t.Orientation),
		LinearVelocity: fromVelocity(t.Velocity),
	}, nil
}

// DistanceSensor reports height above ground.
func (l *Local) DistanceSensor(_ context.Context, _ string, vehicle string) (DistanceSensorData, error) {
	t, err := l.target(vehicle)
	if err != nil {
		return DistanceSensorData{}, err
	}
	return DistanceSensorData{
		TimeStamp:    stamp(t),
		Distance:     t.Position.Altitude(),
		MaxDistance:  400,
		RelativePose: Pose{Orientation: Quaternionr{W: 1}},
	}, nil
}

// IMU reports orientation only; the generator has no acceleration model.
func (l *Local) IMU(_ context.Context, _ string, vehicle string) (ImuData, error) {
	t, err := l.target(vehicle)
	if err != nil {
		return ImuData{}, err
	}
	return ImuData{TimeStamp: stamp(t), Orientation: fromOrientation(t.Orientation)}, nil
}

// Lidar returns an empty sweep at the vehicle pose.
func (l *Local) Lidar(_ context.Context, _ string, vehicle string) (LidarData, error) {
	t, err := l.target(vehicle)
	if err != nil {
		return LidarData{}, err
	}
	return LidarData{
		TimeStamp: stamp(t),
		Pose:      Pose{Position: fromPosition(t.Position), Orientation: fromOrientation(t.Orientation)},
	}, nil
}

// Close implements Gateway.
func (l *Local) Close() error { return nil }
