package livesession

import (
	"context"
	"fmt"
	"sync"

	"github.com/careloop/careloop/internal/channel"
)

type ToolHandler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Tool is one registered tool. ExpectsResponse declares statically whether
// the model waits for a ToolResult; tools whose output is meant for direct
// display (image or document generation) set it false, and the session
// attaches their artifact to the in-progress turn instead of responding.
type Tool struct {
	Name            string
	Description     string
	Parameters      map[string]string
	ExpectsResponse bool
	Handle          ToolHandler
}

type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

func (r *ToolRegistry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handle == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

func (r *ToolRegistry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Declarations returns the tool schemas to advertise on the remote
// channel, in registration-independent (map) order.
func (r *ToolRegistry) Declarations() []channel.ToolDecl {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decls := make([]channel.ToolDecl, 0, len(r.tools))
	for _, t := range r.tools {
		decls = append(decls, channel.ToolDecl{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return decls
}

func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
