package fetcher

import (
	"math/rand/v2"

	"restaurant-scraper/config"
)

// UserAgentPool hands out identifying strings for outbound requests.
// Each call to Pick is an independent uniform random choice.
type UserAgentPool struct {
	agents []string
}

// NewUserAgentPool creates a pool; an empty list falls back to config.DefaultUserAgents
func NewUserAgentPool(agents []string) *UserAgentPool {
	if len(agents) == 0 {
		agents = config.DefaultUserAgents
	}
	return &UserAgentPool{agents: append([]string(nil), agents...)}
}

// Pick returns a random user agent
func (p *UserAgentPool) Pick() string {
	return p.agents[rand.IntN(len(p.agents))]
}

// Len returns the number of agents in the pool
func (p *UserAgentPool) Len() int {
	return len(p.agents)
}
