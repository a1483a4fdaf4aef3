// Package testutil provides shared model fixtures for engine tests.
//
// The centerpiece is a bounded model of a ROS-style publish/subscribe
// robot: a joystick node publishes velocity commands on a command topic,
// a wheel actuator subscribes to the topic and records every command it
// receives, and an optional attacker node may publish arbitrary messages.
// The fixture lets tests exercise the whole analysis pipeline on a model
// whose verdicts are known in advance.
package testutil

import "github.com/eskang/RosAlloy/internal/ir"

// Command names declared by RosModel.
const (
	// RosCheckQuiet checks the safety property with the attacker scoped
	// out. Expected verdict: verified.
	RosCheckQuiet = "safeQuiet"
	// RosCheckExposed checks the safety property with one attacker
	// present. Expected verdict: counterexample.
	RosCheckExposed = "safeExposed"
	// RosRunDelivery searches for a witness of a joystick command
	// reaching the wheel. Expected verdict: satisfiable.
	RosRunDelivery = "findDelivery"
)

// RosModel builds the publish/subscribe robot model.
//
// Components exchange timestamped publish events. The joystick only ever
// publishes commands it is mapped to produce, the wheel never publishes,
// and an attacker (when scoped in) publishes anything on any topic.
// Message delivery appends the published data to each subscriber's
// history one step after the publish, and history content must always be
// traceable to a delivering publish.
//
// The safe predicate states that the wheel only ever records commands
// the joystick can produce. It holds in an attacker-free system and
// breaks as soon as one attacker is admitted.
func RosModel() *ir.Model {
	p := ir.Var("p")
	c := ir.Var("c")
	d := ir.Var("d")
	t := ir.Var("t")

	pAt := ir.Join(p, ir.Name("at"))
	pBy := ir.Join(p, ir.Name("by"))
	pOn := ir.Join(p, ir.Name("on"))
	pMsg := ir.Join(p, ir.Name("msg"))
	arrival := ir.Join(pAt, ir.Next("Time"))
	subscribers := ir.Join(ir.Name("subs"), pOn)
	capable := ir.Join(ir.Name("Joystick"), ir.Name("joyMap"))

	return &ir.Model{
		Name: "rospubsub",
		Sigs: []ir.Sig{
			{Name: "Time", Ordered: true},
			{Name: "Data", Abstract: true},
			{Name: "VelCmd", Parent: "Data"},
			{Name: "Topic", Abstract: true},
			{Name: "CmdVel", Parent: "Topic", Mult: ir.MultOne},
			{Name: "Component", Abstract: true},
			{Name: "Joystick", Parent: "Component", Mult: ir.MultOne},
			{Name: "Wheel", Parent: "Component", Mult: ir.MultOne},
			{Name: "Attacker", Parent: "Component", Mult: ir.MultLone},
			{Name: "Publish"},
		},
		Rels: []ir.Rel{
			{Name: "joyMap", Columns: []string{"Joystick", "VelCmd"}},
			{Name: "subs", Columns: []string{"Component", "Topic"}},
			{Name: "at", Columns: []string{"Publish", "Time"}, Mult: ir.MultOne},
			{Name: "by", Columns: []string{"Publish", "Component"}, Mult: ir.MultOne},
			{Name: "on", Columns: []string{"Publish", "Topic"}, Mult: ir.MultOne},
			{Name: "msg", Columns: []string{"Publish", "Data"}, Mult: ir.MultOne},
			{Name: "history", Columns: []string{"Component", "Data", "Time"}},
		},
		Facts: []ir.Fact{
			// The wheel subscribes to the command topic and nothing else
			// subscribes to anything.
			{Name: "wheelOnlySubscriber", Body: ir.Eq(
				ir.Name("subs"),
				ir.Product(ir.Name("Wheel"), ir.Name("CmdVel")))},
			// The joystick publishes only commands it is mapped to
			// produce, and only on the command topic.
			{Name: "joystickHonest", Body: ir.All("p", ir.Name("Publish"),
				ir.Implies(
					ir.In(pBy, ir.Name("Joystick")),
					ir.And(
						ir.In(pMsg, capable),
						ir.In(pOn, ir.Name("CmdVel")))))},
			// The wheel is a pure actuator.
			{Name: "wheelSilent", Body: ir.No(
				ir.Join(ir.Name("by"), ir.Name("Wheel")))},
			// Histories start empty.
			{Name: "quietStart", Body: ir.All("c", ir.Name("Component"),
				ir.No(ir.Join(c, ir.Name("history"), ir.First("Time"))))},
			// A published message lands in every subscriber's history one
			// step after the publish.
			{Name: "delivery", Body: ir.All("p", ir.Name("Publish"),
				ir.All("c", ir.Name("Component"),
					ir.Implies(
						ir.And(
							ir.In(c, subscribers),
							ir.Some(arrival)),
						ir.In(pMsg, ir.Join(c, ir.Name("history"), arrival)))))},
			// Recorded history persists.
			{Name: "retention", Body: ir.All("c", ir.Name("Component"),
				ir.All("d", ir.Name("Data"),
					ir.All("t", ir.Name("Time"),
						ir.Implies(
							ir.And(
								ir.In(d, ir.Join(c, ir.Name("history"), t)),
								ir.Some(ir.Join(t, ir.Next("Time")))),
							ir.In(d, ir.Join(c, ir.Name("history"),
								ir.Join(t, ir.Next("Time"))))))))},
			// History content is never spontaneous: a recorded datum was
			// either recorded at the previous step or delivered by a
			// publish arriving now.
			{Name: "historyGrounded", Body: ir.All("c", ir.Name("Component"),
				ir.All("d", ir.Name("Data"),
					ir.All("t", ir.Name("Time"),
						ir.Implies(
							ir.In(d, ir.Join(c, ir.Name("history"), t)),
							ir.Or(
								ir.In(d, ir.Join(c, ir.Name("history"),
									ir.Join(t, ir.Transpose(ir.Next("Time"))))),
								ir.Exists("p", ir.Name("Publish"), ir.And(
									ir.Eq(pMsg, d),
									ir.In(c, subscribers),
									ir.Eq(arrival, t))))))))},
			// At most one publish per time step.
			{Name: "calmNetwork", Body: ir.All("t", ir.Name("Time"),
				ir.Lone(ir.Join(ir.Name("at"), t)))},
		},
		Preds: []ir.Pred{
			{Name: "safe", Body: ir.All("d", ir.Name("Data"),
				ir.All("t", ir.Name("Time"),
					ir.Implies(
						ir.In(d, ir.Join(ir.Name("Wheel"), ir.Name("history"), t)),
						ir.In(d, capable))))},
			{Name: "delivered", Body: ir.Exists("d", ir.Name("Data"),
				ir.And(
					ir.In(d, capable),
					ir.Exists("t", ir.Name("Time"),
						ir.In(d, ir.Join(ir.Name("Wheel"), ir.Name("history"), t)))))},
		},
		Commands: []ir.Command{
			{Name: RosCheckQuiet, Kind: ir.CommandCheck, Pred: "safe", Scope: rosScope(0)},
			{Name: RosCheckExposed, Kind: ir.CommandCheck, Pred: "safe", Scope: rosScope(1)},
			{Name: RosRunDelivery, Kind: ir.CommandRun, Pred: "delivered", Scope: rosScope(0)},
		},
	}
}

// rosScope bounds the model to five time steps, three command values and
// four publish events. The attacker count is pinned so check verdicts
// are attributable to the attacker's presence alone.
func rosScope(attackers int) ir.ScopeSpec {
	return ir.ScopeSpec{
		Default: 1,
		Bounds: map[string]int{
			"Time":     5,
			"VelCmd":   3,
			"Publish":  4,
			"Attacker": attackers,
		},
		Exact: map[string]bool{
			"VelCmd":   true,
			"Attacker": true,
		},
	}
}
