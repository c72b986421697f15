package integrations

import (
	"fmt"
	"sort"

	"chatrelay-backend/internal/logging"
)

// Registry holds the mapping between platform names and their Client implementations.
type Registry struct {
	clients map[string]Client
}

// NewRegistry creates a new platform registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
	}
}

// Register adds a client to the registry under its Name.
func (r *Registry) Register(client Client) {
	name := client.Name()
	if _, exists := r.clients[name]; exists {
		logging.Warn().Str("platform", name).Msg("[PlatformRegistry] Platform already registered, overwriting")
	}
	r.clients[name] = client
	logging.Info().Str("platform", name).Msg("[PlatformRegistry] Registered platform client")
}

// Get retrieves a client from the registry by platform name.
func (r *Registry) Get(name string) (Client, error) {
	client, exists := r.clients[name]
	if !exists {
		return nil, fmt.Errorf("no client registered for platform: %s", name)
	}
	return client, nil
}

// MustGet retrieves a client, panicking if not found.
// Useful during initialization if a platform is expected to be present.
func (r *Registry) MustGet(name string) Client {
	client, err := r.Get(name)
	if err != nil {
		panic(fmt.Sprintf("FATAL [PlatformRegistry] %v", err))
	}
	return client
}

// Names lists registered platforms in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
