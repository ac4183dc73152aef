package game

import (
	"math/rand/v2"
	"time"
)

// Order is a customer's burger: the ingredients must be collected in
// sequence before the deadline.
type Order struct {
	ID          int
	Ingredients []Kind
	Next        int
	Remaining   time.Duration
	Limit       time.Duration
}

// NewOrder builds a recipe of 3 to 5 ingredients: a bottom bun, one to
// three distinct fillings and a top bun.
func NewOrder(rng *rand.Rand, id int, limit time.Duration) *Order {
	fillings := 1 + rng.IntN(3)
	kinds := make([]Kind, 0, fillings+2)
	kinds = append(kinds, BunBottom)
	for _, i := range rng.Perm(len(Fillings))[:fillings] {
		kinds = append(kinds, Fillings[i])
	}
	kinds = append(kinds, BunTop)
	return &Order{ID: id, Ingredients: kinds, Remaining: limit, Limit: limit}
}

// Expected returns the next ingredient to collect.
func (o *Order) Expected() Kind {
	if o.Done() {
		return BunTop
	}
	return o.Ingredients[o.Next]
}

// Done reports whether every ingredient was collected.
func (o *Order) Done() bool { return o.Next >= len(o.Ingredients) }

// Expired reports whether the customer gave up.
func (o *Order) Expired() bool { return o.Remaining <= 0 && !o.Done() }

// Reward is the bonus for completing the order: 50 per ingredient plus 5
// per whole second left.
func (o *Order) Reward() int {
	return 50*len(o.Ingredients) + 5*int(o.Remaining/time.Second)
}
