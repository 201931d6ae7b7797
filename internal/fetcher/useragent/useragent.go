// Package useragent holds the browser User-Agent strings sent by fetchers.
package useragent

import "math/rand/v2"

// Defaults mirror current desktop browsers on Windows.
var Defaults = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36 Edg/91.0.864.59",
}

// Pool picks User-Agent strings at random.
type Pool struct {
	agents []string
	pick   func(n int) int
}

// NewPool returns a pool over agents, or Defaults when agents is empty.
func NewPool(agents []string) *Pool {
	if len(agents) == 0 {
		agents = Defaults
	}
	return &Pool{agents: append([]string(nil), agents...), pick: rand.IntN}
}

// Random returns one User-Agent.
func (p *Pool) Random() string {
	return p.agents[p.pick(len(p.agents))]
}
