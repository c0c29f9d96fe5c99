package gateway

import (
	"gonum.org/v1/gonum/num/quat"

	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/telemetry"
)

// Vector3r is a NED vector as exchanged with the simulator.
type Vector3r struct {
	X float64 `msgpack:"x_val"`
	Y float64 `msgpack:"y_val"`
	Z float64 `msgpack:"z_val"`
}

// Quaternionr is an orientation as exchanged with the simulator.
type Quaternionr struct {
	W float64 `msgpack:"w_val"`
	X float64 `msgpack:"x_val"`
	Y float64 `msgpack:"y_val"`
	Z float64 `msgpack:"z_val"`
}

// Pose is a position plus orientation.
type Pose struct {
	Position    Vector3r    `msgpack:"position"`
	Orientation Quaternionr `msgpack:"orientation"`
}

// KinematicsState is the ground truth state of one vehicle.
type KinematicsState struct {
	Position            Vector3r    `msgpack:"position"`
	Orientation         Quaternionr `msgpack:"orientation"`
	LinearVelocity      Vector3r    `msgpack:"linear_velocity"`
	AngularVelocity     Vector3r    `msgpack:"angular_velocity"`
	LinearAcceleration  Vector3r    `msgpack:"linear_acceleration"`
	AngularAcceleration Vector3r    `msgpack:"angular_acceleration"`
}

// DistanceSensorData is a range finder reading.
type DistanceSensorData struct {
	TimeStamp    uint64  `msgpack:"time_stamp"`
	Distance     float64 `msgpack:"distance"`
	MinDistance  float64 `msgpack:"min_distance"`
	MaxDistance  float64 `msgpack:"max_distance"`
	RelativePose Pose    `msgpack:"relative_pose"`
}

// ImuData is an inertial measurement.
type ImuData struct {
	TimeStamp          uint64      `msgpack:"time_stamp"`
	Orientation        Quaternionr `msgpack:"orientation"`
	AngularVelocity    Vector3r    `msgpack:"angular_velocity"`
	LinearAcceleration Vector3r    `msgpack:"linear_acceleration"`
}

// LidarData is one point cloud sweep. PointCloud holds flattened x,y,z triples.
type LidarData struct {
	TimeStamp    uint64    `msgpack:"time_stamp"`
	PointCloud   []float64 `msgpack:"point_cloud"`
	Pose         Pose      `msgpack:"pose"`
	Segmentation []int     `msgpack:"segmentation"`
}

func (v Vector3r) position() geo.Position { return geo.Position{North: v.X, East: v.Y, Down: v.Z} }
func (v Vector3r) velocity() geo.Velocity { return geo.Velocity{North: v.X, East: v.Y, Down: v.Z} }

func fromPosition(p geo.Position) Vector3r { return Vector3r{X: p.North, Y: p.East, Z: p.Down} }
func fromVelocity(v geo.Velocity) Vector3r { return Vector3r{X: v.North, Y: v.East, Z: v.Down} }

func (q Quaternionr) orientation() geo.Orientation {
	return geo.NewOrientation(quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z})
}

func fromOrientation(o geo.Orientation) Quaternionr {
	q := o.Quaternion()
	return Quaternionr{W: q.Real, X: q.Imag, Y: q.Jmag, Z: q.Kmag}
}

// hoverSpeed is the speed below which a vehicle is reported as hovering.
const hoverSpeed = 0.5

// Apply overlays the kinematic ground truth on a target whose identity and
// signature come from configuration.
func (k KinematicsState) Apply(base telemetry.Target) telemetry.Target {
	base.Position = k.Position.position()
	base.Velocity = k.LinearVelocity.velocity()
	base.Orientation = k.Orientation.orientation()
	if base.Status == "" || base.Status == telemetry.StatusMoving || base.Status == telemetry.StatusHovering {
		if base.Velocity.Speed() < hoverSpeed {
			base.Status = telemetry.StatusHovering
		} else {
			base.Status = telemetry.StatusMoving
		}
	}
	return base
}
