// Package peers implements ConnectionPeers[T]: round-robin selection over
// an ordered peer list with a per-peer retry budget (spec §3 "Peer list",
// §4.10 "Peer Rotation"). Grounded on jangala-dev-devicecode-go's
// generic, dependency-free style for small stateful helpers.
package peers

// Peers is a generic round-robin cursor over an ordered list of peer
// identifiers, parameterized by the type their selection resolves to
// (e.g. a parsed URL or connection handle).
type Peers[T any] struct {
	order    []string
	retries  int
	cursor   int
	attempts int
	parse    func(string) T
}

func New[T any](order []string, retries int, parse func(string) T) *Peers[T] {
	return &Peers[T]{order: order, retries: retries, parse: parse}
}

// Available reports whether the peer list is non-empty.
func (p *Peers[T]) Available() bool { return len(p.order) > 0 }

// Select resolves the peer currently under the cursor.
func (p *Peers[T]) Select() (T, bool) {
	var zero T
	if !p.Available() {
		return zero, false
	}
	return p.parse(p.order[p.cursor]), true
}

// Update records a connection attempt's outcome. A successful connection
// resets the attempt counter; a failure increments it, advancing the
// cursor (mod list length) and resetting attempts once it exceeds
// retries.
func (p *Peers[T]) Update(connected bool) {
	if connected {
		p.attempts = 0
		return
	}
	p.attempts++
	if p.attempts > p.retries {
		if n := len(p.order); n > 0 {
			p.cursor = (p.cursor + 1) % n
		}
		p.attempts = 0
	}
}

func (p *Peers[T]) Cursor() int   { return p.cursor }
func (p *Peers[T]) Attempts() int { return p.attempts }
