package domain

// AgentKind discriminates the actors that can create events.
type AgentKind string

const (
	AgentUser   AgentKind = "user"
	AgentSystem AgentKind = "system"
)

// Agent identifies who or what caused an event: a human submitter or an
// automated process acting on the system's behalf.
type Agent struct {
	Kind  AgentKind `json:"kind"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// User returns an agent for a human submitter.
func User(name, email string) Agent {
	return Agent{Kind: AgentUser, Name: name, Email: email}
}

// System returns an agent for an automated actor, typically named after the
// process type it represents.
func System(name string) Agent {
	return Agent{Kind: AgentSystem, Name: name}
}

func (a Agent) IsUser() bool   { return a.Kind == AgentUser }
func (a Agent) IsSystem() bool { return a.Kind == AgentSystem }
