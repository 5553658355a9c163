package grid

import "sync"

// Policy holds the runtime-mutable admission policy. Admin commands mutate
// it in memory only; it is reseeded from config on restart.
type Policy struct {
	mu             sync.RWMutex
	minLoginLevel  int
	welcomeMessage string
}

func NewPolicy(cfg Config) *Policy {
	return &Policy{
		minLoginLevel:  cfg.MinLoginLevel,
		welcomeMessage: cfg.WelcomeMessage,
	}
}

func (p *Policy) MinLoginLevel() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.minLoginLevel
}

func (p *Policy) SetMinLoginLevel(level int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minLoginLevel = level
}

// ResetMinLoginLevel opens the grid to every account level.
func (p *Policy) ResetMinLoginLevel() {
	p.SetMinLoginLevel(0)
}

func (p *Policy) WelcomeMessage() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.welcomeMessage
}

func (p *Policy) SetWelcomeMessage(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.welcomeMessage = msg
}
