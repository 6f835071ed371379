package tools

// Builtins returns the built-in tool set in its advertised order.
func Builtins(d *Deps) []Tool {
	list := []Tool{
		listRunConfigurations(d),
		runConfiguration(d),
		listRunSessions(d),
		stopRunSession(d),

		listDebugSessions(d),
		startDebugSession(d),
		stopDebugSession(d),
		getDebugSessionStatus(d),

		listBreakpoints(d),
		setBreakpoint(d),
		removeBreakpoint(d),
	}
	for _, c := range controls {
		list = append(list, executionTool(d, c))
	}
	return append(list,
		getStackTrace(d),
		selectStackFrame(d),
		getVariables(d),
		evaluate(d),
	)
}

// RegisterBuiltins registers every built-in tool.
func (r *Registry) RegisterBuiltins(d *Deps) {
	for _, t := range Builtins(d) {
		r.Register(t)
	}
}
