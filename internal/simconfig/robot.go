package simconfig

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/simba-sim/simba/internal/builtin"
	"github.com/simba-sim/simba/internal/bus"
	"github.com/simba-sim/simba/internal/geom"
	"github.com/simba-sim/simba/internal/landmark"
	"github.com/simba-sim/simba/internal/module"
	"github.com/simba-sim/simba/internal/node"
	"github.com/simba-sim/simba/internal/simerr"
	"github.com/simba-sim/simba/internal/trajectory"
)

// PoseConfig is a robot's initial pose (spec §6).
type PoseConfig struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Theta float64 `yaml:"theta"`
}

// NetworkConfig is a node's communication parameters (spec §4.2).
type NetworkConfig struct {
	Range float64 `yaml:"range"`
	Delay float64 `yaml:"delay"`
}

// RobotConfig is one entry of the top-level robots array, or a
// templates map value used by a scenario Spawn (spec §4.5).
type RobotConfig struct {
	Name            string        `yaml:"name"`
	Model           string        `yaml:"model"` // unicycle | holonomic
	InitialPose     PoseConfig    `yaml:"initial_pose"`
	WheelDistance   float64       `yaml:"wheel_distance"`
	Network         NetworkConfig `yaml:"network"`
	Navigator       yaml.Node     `yaml:"navigator"`
	Controller      yaml.Node     `yaml:"controller"`
	Sensors         []yaml.Node   `yaml:"sensors"`
	StateEstimators []yaml.Node   `yaml:"state_estimators"`
}

// ComputationUnitConfig is one entry of the computation_units array: a
// non-physical node carrying only state estimators (spec §3, GLOSSARY).
type ComputationUnitConfig struct {
	Name            string      `yaml:"name"`
	StateEstimators []yaml.Node `yaml:"state_estimators"`
}

// buildRobot constructs a *node.Node from cfg, using name in place of
// cfg.Name so the same config can serve both a directly-listed robot and
// a scenario Spawn template (spec §4.5).
func buildRobot(cfg RobotConfig, name string, b *bus.Bus, landmarks *landmark.Map) (*node.Node, error) {
	path := "robots." + name
	n := node.New(name, node.RoleRobot, node.Network{Range: cfg.Network.Range, Delay: cfg.Network.Delay}, b)

	model, err := robotModel(cfg.Model, path)
	if err != nil {
		return nil, err
	}
	initial := module.Pose{X: cfg.InitialPose.X, Y: cfg.InitialPose.Y, Theta: cfg.InitialPose.Theta}

	switch model {
	case module.ModelUnicycle:
		if cfg.WheelDistance <= 0 {
			return nil, &simerr.ConfigurationError{Path: path + ".wheel_distance", Reason: "must be positive for a unicycle model"}
		}
		n.Physics = builtin.NewUnicyclePhysics(name+"/physics", initial, cfg.WheelDistance, 0.1)
	case module.ModelHolonomic:
		n.Physics = builtin.NewHolonomicPhysics(name+"/physics", initial, 0.1)
	}

	nav, err := buildNavigator(cfg.Navigator, path+".navigator", landmarks)
	if err != nil {
		return nil, err
	}
	n.Navigator = nav

	ctrl, err := buildController(cfg.Controller, path+".controller", model, cfg.WheelDistance)
	if err != nil {
		return nil, err
	}
	n.Controller = ctrl

	for i, raw := range cfg.Sensors {
		s, err := buildSensor(raw, fmt.Sprintf("%s.sensors[%d]", path, i), landmarks)
		if err != nil {
			return nil, err
		}
		n.Sensors = append(n.Sensors, s)
	}

	for i, raw := range cfg.StateEstimators {
		se, err := buildStateEstimator(raw, fmt.Sprintf("%s.state_estimators[%d]", path, i))
		if err != nil {
			return nil, err
		}
		n.StateEstimators = append(n.StateEstimators, se)
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

func buildComputationUnit(cfg ComputationUnitConfig, b *bus.Bus) (*node.Node, error) {
	path := "computation_units." + cfg.Name
	n := node.New(cfg.Name, node.RoleComputationUnit, node.Network{}, b)
	for i, raw := range cfg.StateEstimators {
		se, err := buildStateEstimator(raw, fmt.Sprintf("%s.state_estimators[%d]", path, i))
		if err != nil {
			return nil, err
		}
		n.StateEstimators = append(n.StateEstimators, se)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

func robotModel(s, path string) (module.RobotModel, error) {
	switch s {
	case "unicycle":
		return module.ModelUnicycle, nil
	case "holonomic":
		return module.ModelHolonomic, nil
	default:
		return 0, &simerr.ConfigurationError{Path: path + ".model", Reason: fmt.Sprintf("unknown model %q", s)}
	}
}

type navigatorGotoConfig struct {
	Type         string  `yaml:"type"`
	TargetX      float64 `yaml:"target_x"`
	TargetY      float64 `yaml:"target_y"`
	StopDistance float64 `yaml:"stop_distance"`
	Period       float64 `yaml:"period"`
}

type navigatorTrajectoryConfig struct {
	Type         string  `yaml:"type"`
	Path         string  `yaml:"path"`
	StopDistance float64 `yaml:"stop_distance"`
	Period       float64 `yaml:"period"`
}

func buildNavigator(raw yaml.Node, path string, landmarks *landmark.Map) (module.Navigator, error) {
	kind, err := peekType(&raw, path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "goto":
		var cfg navigatorGotoConfig
		if err := decodeStrict(&raw, path, &cfg); err != nil {
			return nil, err
		}
		return builtin.NewGoToNavigator(geom.Vector2{X: cfg.TargetX, Y: cfg.TargetY}, cfg.StopDistance, cfg.Period), nil
	case "trajectory":
		var cfg navigatorTrajectoryConfig
		if err := decodeStrict(&raw, path, &cfg); err != nil {
			return nil, err
		}
		traj, err := trajectory.Load(cfg.Path)
		if err != nil {
			return nil, err
		}
		return builtin.NewTrajectoryNavigator(traj, cfg.StopDistance, cfg.Period), nil
	default:
		return nil, &simerr.ConfigurationError{Path: path + ".type", Reason: fmt.Sprintf("unknown navigator type %q", kind)}
	}
}

type controllerPIDConfig struct {
	Type        string  `yaml:"type"`
	Speed       float64 `yaml:"speed"`
	HeadingGain float64 `yaml:"heading_gain"`
	Period      float64 `yaml:"period"`
}

func buildController(raw yaml.Node, path string, model module.RobotModel, wheelDistance float64) (module.Controller, error) {
	kind, err := peekType(&raw, path)
	if err != nil {
		return nil, err
	}
	if kind != "pid" {
		return nil, &simerr.ConfigurationError{Path: path + ".type", Reason: fmt.Sprintf("unknown controller type %q", kind)}
	}
	var cfg controllerPIDConfig
	if err := decodeStrict(&raw, path, &cfg); err != nil {
		return nil, err
	}
	switch model {
	case module.ModelUnicycle:
		return builtin.NewUnicycleController(wheelDistance, cfg.Speed, cfg.HeadingGain, cfg.Period), nil
	default:
		return builtin.NewHolonomicController(cfg.Speed, cfg.HeadingGain, cfg.Period), nil
	}
}

type sensorGNSSConfig struct {
	Type    string      `yaml:"type"`
	Name    string      `yaml:"name"`
	Period  float64     `yaml:"period"`
	SendTo  []string    `yaml:"send_to"`
	Faults  []yaml.Node `yaml:"faults"`
	Filters []yaml.Node `yaml:"filters"`
}

type sensorRangeBearingConfig struct {
	Type     string      `yaml:"type"`
	Name     string      `yaml:"name"`
	Target   string      `yaml:"target"`
	MaxRange float64     `yaml:"max_range"`
	Period   float64     `yaml:"period"`
	SendTo   []string    `yaml:"send_to"`
	Faults   []yaml.Node `yaml:"faults"`
	Filters  []yaml.Node `yaml:"filters"`
}

func buildSensor(raw yaml.Node, path string, landmarks *landmark.Map) (node.Sensor, error) {
	kind, err := peekType(&raw, path)
	if err != nil {
		return node.Sensor{}, err
	}
	switch kind {
	case "gnss":
		var cfg sensorGNSSConfig
		if err := decodeStrict(&raw, path, &cfg); err != nil {
			return node.Sensor{}, err
		}
		s := node.Sensor{Module: builtin.NewGNSSSensor(cfg.Name, cfg.Period, cfg.SendTo...)}
		if s.Faults, err = buildFaults(cfg.Faults, path+".faults"); err != nil {
			return node.Sensor{}, err
		}
		if s.Filters, err = buildFilters(cfg.Filters, path+".filters", landmarks); err != nil {
			return node.Sensor{}, err
		}
		return s, nil
	case "range_bearing":
		var cfg sensorRangeBearingConfig
		if err := decodeStrict(&raw, path, &cfg); err != nil {
			return node.Sensor{}, err
		}
		s := node.Sensor{Module: builtin.NewRangeBearingSensor(cfg.Name, cfg.Target, cfg.MaxRange, cfg.Period, cfg.SendTo...)}
		if s.Faults, err = buildFaults(cfg.Faults, path+".faults"); err != nil {
			return node.Sensor{}, err
		}
		if s.Filters, err = buildFilters(cfg.Filters, path+".filters", landmarks); err != nil {
			return node.Sensor{}, err
		}
		return s, nil
	default:
		return node.Sensor{}, &simerr.ConfigurationError{Path: path + ".type", Reason: fmt.Sprintf("unknown sensor type %q", kind)}
	}
}

type faultGaussianConfig struct {
	Type   string  `yaml:"type"`
	Name   string  `yaml:"name"`
	Stddev float64 `yaml:"stddev"`
}

type faultCorrelatedGaussianConfig struct {
	Type       string      `yaml:"type"`
	Name       string      `yaml:"name"`
	Covariance [][]float64 `yaml:"covariance"`
}

func buildFaults(raws []yaml.Node, path string) ([]module.Fault, error) {
	var out []module.Fault
	for i, raw := range raws {
		p := fmt.Sprintf("%s[%d]", path, i)
		kind, err := peekType(&raw, p)
		if err != nil {
			return nil, err
		}
		switch kind {
		case "gaussian":
			var cfg faultGaussianConfig
			if err := decodeStrict(&raw, p, &cfg); err != nil {
				return nil, err
			}
			out = append(out, builtin.NewGaussianFault(cfg.Name, cfg.Stddev))
		case "correlated_gaussian":
			var cfg faultCorrelatedGaussianConfig
			if err := decodeStrict(&raw, p, &cfg); err != nil {
				return nil, err
			}
			if len(cfg.Covariance) != 2 || len(cfg.Covariance[0]) != 2 || len(cfg.Covariance[1]) != 2 {
				return nil, &simerr.ConfigurationError{Path: p + ".covariance", Reason: "correlated_gaussian requires a 2x2 covariance matrix"}
			}
			out = append(out, builtin.NewCorrelatedGaussianFault(cfg.Name, cfg.Covariance))
		default:
			return nil, &simerr.ConfigurationError{Path: p + ".type", Reason: fmt.Sprintf("unknown fault type %q", kind)}
		}
	}
	return out, nil
}

type filterRangeConfig struct {
	Type     string  `yaml:"type"`
	Name     string  `yaml:"name"`
	MaxRange float64 `yaml:"max_range"`
}

type filterLandmarkVisibilityConfig struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

func buildFilters(raws []yaml.Node, path string, landmarks *landmark.Map) ([]module.Filter, error) {
	var out []module.Filter
	for i, raw := range raws {
		p := fmt.Sprintf("%s[%d]", path, i)
		kind, err := peekType(&raw, p)
		if err != nil {
			return nil, err
		}
		switch kind {
		case "range":
			var cfg filterRangeConfig
			if err := decodeStrict(&raw, p, &cfg); err != nil {
				return nil, err
			}
			out = append(out, builtin.NewRangeFilter(cfg.Name, cfg.MaxRange))
		case "landmark_visibility":
			var cfg filterLandmarkVisibilityConfig
			if err := decodeStrict(&raw, p, &cfg); err != nil {
				return nil, err
			}
			if landmarks == nil {
				return nil, &simerr.ConfigurationError{Path: p, Reason: "landmark_visibility filter requires environment.map_path"}
			}
			out = append(out, builtin.NewLandmarkVisibilityFilter(cfg.Name, landmarks))
		default:
			return nil, &simerr.ConfigurationError{Path: p + ".type", Reason: fmt.Sprintf("unknown filter type %q", kind)}
		}
	}
	return out, nil
}

type stateEstimatorPerfectConfig struct {
	Type   string  `yaml:"type"`
	Period float64 `yaml:"period"`
}

func buildStateEstimator(raw yaml.Node, path string) (module.StateEstimator, error) {
	kind, err := peekType(&raw, path)
	if err != nil {
		return nil, err
	}
	if kind != "perfect" {
		return nil, &simerr.ConfigurationError{Path: path + ".type", Reason: fmt.Sprintf("unknown state estimator type %q", kind)}
	}
	var cfg stateEstimatorPerfectConfig
	if err := decodeStrict(&raw, path, &cfg); err != nil {
		return nil, err
	}
	return builtin.NewPerfectEstimator(cfg.Period), nil
}
