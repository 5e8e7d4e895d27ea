package control

// BlockConfig describes one node in a control Loop: its type-specific tuning
// knobs (Attribute), and the upstream signal names it consumes (DependsOn).
// This is the teacher's control-block config shape, generalized from motor
// PID loops to the navigation twist pipeline.
//
// navcore has no closed-loop feedback subsystem wide enough to need the
// teacher's full chained Block/Loop graph (gain/sum/constant/PID nodes
// wired by DependsOn): rotation and stopping speeds are direct
// kinematic-limit formulas (localctrl.rotateToward), and the one place a
// velocity profile block does apply (stop_with_acc_limits) is driven
// directly by TrapezoidVelocityProfile rather than through a configured
// Loop. BlockConfig survives because TrapezoidVelocityProfile still takes
// one as its constructor argument.
type BlockConfig struct {
	Name      string
	Type      string
	Attribute AttributeMap
	DependsOn []string
}
