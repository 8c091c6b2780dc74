// Package demo publishes synthetic robot telemetry so the plotter has
// something to draw without an external publisher.
package demo

import (
	"context"
	"github.com/minor-industries/protoplot/internal/dynschema"
	"github.com/minor-industries/protoplot/transport"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/dynamicpb"
	"log/slog"
	"math"
	"time"
)

const (
	StateTopic   = "/robot/state"
	BatteryTopic = "/robot/battery"
)

var file = dynschema.MustBuild(dynschema.File{
	Name:    "demo/robot.proto",
	Package: "demo.robot",
	Messages: []dynschema.Msg{
		{Name: "Vector3", Fields: []dynschema.Field{
			{Name: "x", Type: dynschema.Double},
			{Name: "y", Type: dynschema.Double},
			{Name: "z", Type: dynschema.Double},
		}},
		{Name: "Pose", Fields: []dynschema.Field{
			{Name: "position", Type: dynschema.Message, TypeName: "Vector3"},
			{Name: "heading", Type: dynschema.Float},
		}},
		{Name: "Battery", Fields: []dynschema.Field{
			{Name: "voltage", Type: dynschema.Float},
			{Name: "charging", Type: dynschema.Bool},
			{Name: "cell_count", Type: dynschema.Int32},
			{Name: "label", Type: dynschema.String},
		}},
		{Name: "Odometry", Fields: []dynschema.Field{
			{Name: "ticks", Type: dynschema.Uint64},
			{Name: "speed", Type: dynschema.Double},
		}},
		{Name: "RobotState", Fields: []dynschema.Field{
			{Name: "pose", Type: dynschema.Message, TypeName: "Pose"},
			{Name: "battery", Type: dynschema.Message, TypeName: "Battery"},
			{Name: "odometry", Type: dynschema.Message, TypeName: "Odometry"},
			{Name: "mode", Type: dynschema.String},
		}},
	},
})

var (
	stateDesc   = file.Messages().ByName("RobotState")
	batteryDesc = file.Messages().ByName("Battery")
)

func StateType() string {
	return string(stateDesc.FullName())
}

func BatteryType() string {
	return string(batteryDesc.FullName())
}

// Types resolves the demo messages when they arrive as google.protobuf.Any.
func Types() (*protoregistry.Types, error) {
	return dynschema.Types(file)
}

// State returns the robot state at step n.
func State(n uint64) protoreflect.Message {
	t := float64(n) / 10
	msg := dynamicpb.NewMessage(stateDesc)

	set := func(path []string, v protoreflect.Value) {
		if err := dynschema.Set(msg, path, v); err != nil {
			panic(err)
		}
	}

	set([]string{"pose", "position", "x"}, protoreflect.ValueOfFloat64(10*math.Cos(t)))
	set([]string{"pose", "position", "y"}, protoreflect.ValueOfFloat64(10*math.Sin(t)))
	set([]string{"pose", "position", "z"}, protoreflect.ValueOfFloat64(0.5*math.Sin(3*t)))
	set([]string{"pose", "heading"}, protoreflect.ValueOfFloat32(float32(math.Mod(t, 2*math.Pi))))
	set([]string{"odometry", "ticks"}, protoreflect.ValueOfUint64(n*12))
	set([]string{"odometry", "speed"}, protoreflect.ValueOfFloat64(1+0.2*math.Sin(t/2)))
	set([]string{"mode"}, protoreflect.ValueOfString("patrol"))

	battery := msg.Mutable(stateDesc.Fields().ByName("battery")).Message()
	fillBattery(battery, n)
	return msg
}

// Battery returns the standalone battery message at step n.
func Battery(n uint64) protoreflect.Message {
	msg := dynamicpb.NewMessage(batteryDesc)
	fillBattery(msg, n)
	return msg
}

func fillBattery(msg protoreflect.Message, n uint64) {
	fields := msg.Descriptor().Fields()
	cycle := n % 200
	charging := cycle >= 150

	voltage := 25.2 - 0.02*float64(cycle)
	if charging {
		voltage = 22.2 + 0.06*float64(cycle-150)
	}

	msg.Set(fields.ByName("voltage"), protoreflect.ValueOfFloat32(float32(voltage)))
	msg.Set(fields.ByName("charging"), protoreflect.ValueOfBool(charging))
	msg.Set(fields.ByName("cell_count"), protoreflect.ValueOfInt32(6))
	msg.Set(fields.ByName("label"), protoreflect.ValueOfString("main"))
}

// Run advertises the demo topics and publishes one message on each per
// interval until ctx is done.
func Run(ctx context.Context, adv transport.Advertiser, interval time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "demo")

	if err := adv.Advertise(StateTopic, StateType()); err != nil {
		return errors.Wrap(err, "advertise state")
	}
	if err := adv.Advertise(BatteryTopic, BatteryType()); err != nil {
		return errors.Wrap(err, "advertise battery")
	}
	log.Info("publishing", "topics", []string{StateTopic, BatteryTopic}, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var n uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := adv.Publish(StateTopic, State(n).Interface()); err != nil {
				return errors.Wrap(err, "publish state")
			}
			if err := adv.Publish(BatteryTopic, Battery(n).Interface()); err != nil {
				return errors.Wrap(err, "publish battery")
			}
			n++
		}
	}
}
