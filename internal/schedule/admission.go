package schedule

import "sync"

// AdmissionGate enforces the safe default: one live match
// per agent at a time. Two parallel matches wanting the same agent
// serialise on its token; nothing else is throttled.
type AdmissionGate struct {
	mu     sync.Mutex
	tokens map[string]chan struct{}
}

func NewAdmissionGate() *AdmissionGate {
	return &AdmissionGate{tokens: make(map[string]chan struct{})}
}

func (g *AdmissionGate) tokenFor(teamName string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.tokens[teamName]
	if !ok {
		ch = make(chan struct{}, 1)
		ch <- struct{}{}
		g.tokens[teamName] = ch
	}
	return ch
}

// Acquire blocks until both teamNames are free, always acquiring in a
// fixed lexical order to avoid deadlocking two matches that both want
// the same pair of agents.
func (g *AdmissionGate) Acquire(teamA, teamB string) func() {
	first, second := teamA, teamB
	if second < first {
		first, second = second, first
	}
	t1 := g.tokenFor(first)
	<-t1
	t2 := g.tokenFor(second)
	<-t2
	return func() {
		t2 <- struct{}{}
		t1 <- struct{}{}
	}
}
