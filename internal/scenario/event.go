package scenario

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/simba-sim/simba/internal/simerr"
)

// EventKind discriminates a scenario Event's action (spec §4.5).
type EventKind int

const (
	EventSpawn EventKind = iota
	EventKill
)

// Event pairs a Trigger with the action it drives. For Spawn, ModelName
// names the template node to clone and NodeName is the (possibly
// $k-templated) name of the clone. For Kill, Target is the (possibly
// $k-templated) name of the node to detach (spec §4.5).
type Event struct {
	Trigger   *Trigger
	Kind      EventKind
	ModelName string
	NodeName  string
	Target    string
}

var occurrenceVarPattern = regexp.MustCompile(`\$(\d+)`)

// Validate checks the ScenarioBindingMissing invariant of spec §7: every
// $k token the event's templates reference must be within the range the
// trigger binds.
func (e *Event) Validate() error {
	for _, tmpl := range []string{e.NodeName, e.Target} {
		for _, m := range occurrenceVarPattern.FindAllStringSubmatch(tmpl, -1) {
			idx, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if idx >= e.Trigger.BoundVars() {
				return &simerr.ScenarioBindingMissingError{Variable: fmt.Sprintf("$%d", idx), Event: tmpl}
			}
		}
	}
	return nil
}

// Bind substitutes bound occurrence variables into a template string,
// e.g. "robot_$0" with bindings {"$0": "3"} -> "robot_3".
func Bind(template string, bindings map[string]string) string {
	out := template
	for k, v := range bindings {
		out = strings.ReplaceAll(out, k, v)
	}
	return out
}

// Occurrence is one resolved firing of an Event: bindings are already
// substituted into the action's parameters (spec §4.5).
type Occurrence struct {
	Kind      EventKind
	ModelName string
	NodeName  string
	Target    string
}

// Resolve substitutes bindings into e's action parameters.
func (e *Event) Resolve(bindings map[string]string) Occurrence {
	return Occurrence{
		Kind:      e.Kind,
		ModelName: e.ModelName,
		NodeName:  Bind(e.NodeName, bindings),
		Target:    Bind(e.Target, bindings),
	}
}
