// Copyright (c) Microsoft. All rights reserved.

package plugins

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"

	af "github.com/contoso/travelagent/agentframework"
)

var destinations = []string{
	"Barcelona, Spain",
	"Paris, France",
	"Berlin, Germany",
	"Tokyo, Japan",
	"Sydney, Australia",
	"New York, USA",
	"Cairo, Egypt",
	"Cape Town, South Africa",
	"Rio de Janeiro, Brazil",
	"Bali, Indonesia",
}

type bookFlightArgs struct {
	Date     string `json:"date"     jsonschema:"description=The date of the flight,required"`
	Location string `json:"location" jsonschema:"description=The destination location,required"`
}

// NewBookFlightTool returns book_flight.
func NewBookFlightTool() *af.FunctionTool {
	return af.NewTypedTool("book_flight", "Books a flight to a location on a date.",
		func(ctx context.Context, args bookFlightArgs) (string, error) {
			date := strings.TrimSpace(args.Date)
			location := strings.TrimSpace(args.Location)
			switch {
			case date == "" && location == "":
				return "Please provide both a date and a location to book a flight.", nil
			case date == "":
				return "Please provide a date to book a flight to " + location + ".", nil
			case location == "":
				return "Please provide a location to book a flight on " + date + ".", nil
			}
			return "Flight booked to " + location + " on " + date + ".", nil
		},
	)
}

// RandomDestination picks destinations without repeating the previous pick.
type RandomDestination struct {
	mu   sync.Mutex
	rng  *rand.Rand
	last int
}

// NewRandomDestination creates a picker. A nil rng uses a randomly seeded source.
func NewRandomDestination(rng *rand.Rand) *RandomDestination {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomDestination{rng: rng, last: -1}
}

// Next returns a destination different from the one returned last.
func (r *RandomDestination) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.rng.IntN(len(destinations))
	if i == r.last {
		// skip over the previous pick
		i = (i + 1 + r.rng.IntN(len(destinations)-1)) % len(destinations)
	}
	r.last = i
	return destinations[i]
}

// NewRandomDestinationTool returns get_random_destination backed by rng.
func NewRandomDestinationTool(rng *rand.Rand) *af.FunctionTool {
	picker := NewRandomDestination(rng)
	return af.NewTypedTool("get_random_destination", "Suggests a random vacation destination.",
		func(ctx context.Context, _ struct{}) (string, error) {
			return picker.Next(), nil
		},
	)
}
