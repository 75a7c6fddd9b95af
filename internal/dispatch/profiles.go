package dispatch

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownProfile is returned when a requested agent type is not registered.
var ErrUnknownProfile = errors.New("dispatch: unknown agent type") //nolint:gochecknoglobals // sentinel error

// Profile is the persona template for one agent type. Instructions and
// Greeting may contain {room} and {language} placeholders that are
// expanded per job.
type Profile struct {
	AgentType    string
	Instructions string
	Greeting     string
	Voice        string
	Language     string
}

// Profiles is the agent type registry.
type Profiles struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewProfiles returns a registry preloaded with the built-in agent types.
func NewProfiles() *Profiles {
	p := &Profiles{profiles: make(map[string]Profile)}
	for _, builtin := range builtinProfiles {
		p.Register(builtin)
	}
	return p
}

// Register adds or replaces a profile under its agent type.
func (p *Profiles) Register(profile Profile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[profile.AgentType] = profile
}

// Get resolves an agent type to its profile.
func (p *Profiles) Get(agentType string) (Profile, error) {
	p.mu.RLock()
	profile, ok := p.profiles[agentType]
	p.mu.RUnlock()

	if !ok {
		return Profile{}, fmt.Errorf("dispatch.Profiles.Get(%q): %w", agentType, ErrUnknownProfile)
	}
	return profile, nil
}

// Available returns registered agent type names in sorted order.
func (p *Profiles) Available() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.profiles))
	for name := range p.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultAgentType is used when a job names no agent type.
const DefaultAgentType = "tutor"

var builtinProfiles = []Profile{
	{
		AgentType: "tutor",
		Instructions: "You are an expert {language} tutor. Create an immersive, supportive " +
			"learning environment that adapts to the student's level. Communicate in the " +
			"student's native language unless demonstrating {language} examples, label every " +
			"example clearly, and follow it with an explanation. Be patient and encouraging, " +
			"celebrate progress, check comprehension regularly, and give immediate feedback " +
			"on correct and incorrect responses. Cover vocabulary with translations and " +
			"context, grammar broken into understandable steps, and pronunciation practice " +
			"with specific feedback and a 1-10 score.",
		Greeting: "Greet the student warmly in their native language, then ask about their " +
			"goals for this session.",
		Voice:    "echo",
		Language: "English",
	},
	{
		AgentType: "assistant",
		Instructions: "You are a helpful voice assistant in the room {room}. Answer " +
			"concisely and conversationally. When you do not know something, say so.",
		Greeting: "Greet the user briefly and ask how you can help.",
		Voice:    "alloy",
		Language: "English",
	},
}
