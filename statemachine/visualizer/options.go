package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowEvents labels edges with the event that fires them
	ShowEvents bool

	// ShowGuards marks guarded edges
	ShowGuards bool

	// Direction controls diagram flow: "TB" (top-bottom) or "LR" (left-right)
	Direction string

	// HighlightPath highlights a specific state path through the diagram
	HighlightPath []string

	// FinalStates get an edge to the terminal marker
	FinalStates []string

	// HideEvents drops edges fired by these events, e.g. global resets
	HideEvents []string

	// Fenced wraps the diagram in a markdown code fence
	Fenced bool

	// Theme controls the color scheme: "default" or "dark"
	Theme string
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowEvents: true,
		ShowGuards: true,
		Direction:  "TB",
		Fenced:     true,
		Theme:      "default",
	}
}

// WithShowEvents enables/disables edge labels.
func (o Options) WithShowEvents(show bool) Options {
	o.ShowEvents = show

	return o
}

// WithShowGuards enables/disables guard markers.
func (o Options) WithShowGuards(show bool) Options {
	o.ShowGuards = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

// WithFinalStates sets the terminal states.
func (o Options) WithFinalStates(states ...string) Options {
	o.FinalStates = states

	return o
}

// WithHideEvents hides edges fired by the given events.
func (o Options) WithHideEvents(events ...string) Options {
	o.HideEvents = events

	return o
}

// WithFenced enables/disables the markdown code fence.
func (o Options) WithFenced(fenced bool) Options {
	o.Fenced = fenced

	return o
}

// WithTheme sets the color theme.
func (o Options) WithTheme(theme string) Options {
	o.Theme = theme

	return o
}
