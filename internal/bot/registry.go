package bot

// Registry holds the trigger table. Handlers are evaluated in registration
// order and the first match wins.
type Registry struct {
	handlers []Handler
}

// NewRegistry creates a new handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make([]Handler, 0),
	}
}

// Register appends a handler to the table.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Match returns the first handler that can handle text, or nil.
func (r *Registry) Match(text string) Handler {
	for _, h := range r.handlers {
		if h.CanHandle(text) {
			return h
		}
	}
	return nil
}

// GetHandler returns a handler by name.
func (r *Registry) GetHandler(name string) Handler {
	for _, h := range r.handlers {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// Names lists the registered handlers in evaluation order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.handlers))
	for i, h := range r.handlers {
		names[i] = h.Name()
	}
	return names
}
