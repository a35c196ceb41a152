package squad

// Option applies a configuration option to the Balancer.
type Option func(*Balancer)

// WithJitterSource injects the random source used for sort-key jitter.
// Tests use it to pin draft outcomes.
func WithJitterSource(src JitterSource) Option {
	return func(b *Balancer) {
		if src != nil {
			b.src = src
		}
	}
}

// WithJitter sets the half-width of the uniform jitter added to each
// overall rating. Zero disables jitter.
func WithJitter(amplitude float64) Option {
	return func(b *Balancer) {
		if amplitude >= 0 {
			b.jitter = amplitude
		}
	}
}

// WithGuestRating sets the attribute value given to every guest.
func WithGuestRating(rating float64) Option {
	return func(b *Balancer) {
		if rating > 0 {
			b.guestRating = rating
		}
	}
}
