package control

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/fetchcore/navcore/logging"
)

type profilePhase int

const (
	rest profilePhase = iota
	active
)

// TrapezoidVelocityProfile turns a (set_point, endpoint) position pair
// into an acceleration-limited velocity command that ramps up to max_vel,
// cruises, and brakes to land on set_point without overshoot. localctrl
// uses it directly for stop_with_acc_limits, driven by distance-to-goal
// rather than a config-file position setpoint.
//
// It does not implement Block: Next takes mutable *Signal pointers instead
// of value Signals, since the caller (not a Loop) owns position
// integration between ticks.
type TrapezoidVelocityProfile struct {
	conf BlockConfig

	maxAcc, maxVel, posWindow float64

	currentPhase profilePhase
	currentVel   float64

	logger logging.Logger
}

// NewTrapezoidVelocityProfile builds a TrapezoidVelocityProfile from conf's
// max_vel/max_acc/pos_window attributes.
func NewTrapezoidVelocityProfile(conf BlockConfig, logger logging.Logger) (*TrapezoidVelocityProfile, error) {
	return newTrapezoidVelocityProfile(conf, logger)
}

func newTrapezoidVelocityProfile(conf BlockConfig, logger logging.Logger) (*TrapezoidVelocityProfile, error) {
	maxVel, ok := conf.Attribute.Float64("max_vel")
	if !ok {
		return nil, errors.Errorf("trapezoidale velocity profile block %s needs max_vel field", conf.Name)
	}
	maxAcc, ok := conf.Attribute.Float64("max_acc")
	if !ok {
		return nil, errors.Errorf("trapezoidale velocity profile block %s needs max_acc field", conf.Name)
	}
	posWindow, _ := conf.Attribute.Float64("pos_window")
	return &TrapezoidVelocityProfile{
		conf:      conf,
		maxAcc:    maxAcc,
		maxVel:    maxVel,
		posWindow: posWindow,
		logger:    logger,
	}, nil
}

// Next takes ins[0] as set_point and ins[1] as the current endpoint
// position; it does not mutate either, leaving integration to the caller.
func (b *TrapezoidVelocityProfile) Next(ctx context.Context, ins []*Signal, dt time.Duration) ([]Signal, bool) {
	setPoint := ins[0].GetSignalValueAt(0)
	endpoint := ins[1].GetSignalValueAt(0)
	errDist := setPoint - endpoint

	if math.Abs(errDist) <= b.posWindow {
		b.currentPhase = rest
		b.currentVel = 0
		out := makeSignal(b.conf.Name, 1)
		return []Signal{out}, true
	}

	b.currentPhase = active
	direction := 1.0
	if errDist < 0 {
		direction = -1.0
	}

	dtSeconds := dt.Seconds()
	brakingDist := (b.currentVel * b.currentVel) / (2 * b.maxAcc)

	targetVel := direction * b.maxVel
	if brakingDist >= math.Abs(errDist) {
		targetVel = 0
	}

	maxDelta := b.maxAcc * dtSeconds
	delta := targetVel - b.currentVel
	if delta > maxDelta {
		delta = maxDelta
	} else if delta < -maxDelta {
		delta = -maxDelta
	}
	b.currentVel += delta

	out := makeSignal(b.conf.Name, 1)
	out.SetSignalValueAt(0, b.currentVel)
	return []Signal{out}, true
}

func (b *TrapezoidVelocityProfile) Reset(ctx context.Context) error {
	b.currentPhase = rest
	b.currentVel = 0
	return nil
}

func (b *TrapezoidVelocityProfile) Config(ctx context.Context) BlockConfig { return b.conf }
