// Copyright (c) Microsoft. All rights reserved.

package plugins

import (
	"fmt"
	"strings"

	af "github.com/contoso/travelagent/agentframework"
	"github.com/contoso/travelagent/retrieval"
)

var temperatures = []Entry{
	{Key: "Maldives", Value: "82°F (28°C)"},
	{Key: "Swiss Alps", Value: "45°F (7°C)"},
	{Key: "African safaris", Value: "75°F (24°C)"},
}

var travelDocuments = []Entry{
	{Key: "packages", Value: "Contoso Travel offers luxury vacation packages to exotic destinations worldwide."},
	{Key: "services", Value: "Our premium travel services include personalized itinerary planning and 24/7 concierge support."},
	{Key: "insurance", Value: "Contoso's travel insurance covers medical emergencies, trip cancellations, and lost baggage."},
	{Key: "destinations", Value: "Popular destinations include the Maldives, Swiss Alps, and African safaris."},
	{Key: "hotels", Value: "Contoso Travel provides exclusive access to boutique hotels and private guided tours."},
}

// NewTemperatureTool returns get_destination_temperature.
func NewTemperatureTool() *Lookup {
	return NewLookup(LookupConfig{
		Name:             "get_destination_temperature",
		Description:      "Get the average temperature for a specific travel destination.",
		Param:            "destination",
		ParamDescription: "The destination name, e.g. Maldives",
		Entries:          temperatures,
		Found: func(e Entry) string {
			return fmt.Sprintf("The average temperature in %s is %s.", e.Key, e.Value)
		},
		Missing: func(input string, keys []string) string {
			return fmt.Sprintf("Sorry, I don't have temperature data for %s. Available destinations are: %s.", input, strings.Join(keys, ", "))
		},
	})
}

// NewTravelDocumentTool returns get_travel_document.
func NewTravelDocumentTool() *Lookup {
	return NewLookup(LookupConfig{
		Name:             "get_travel_document",
		Description:      "Get a Contoso Travel document about a topic.",
		Param:            "topic",
		ParamDescription: "The document topic: packages, services, insurance, destinations or hotels",
		Entries:          travelDocuments,
		Missing: func(input string, keys []string) string {
			return fmt.Sprintf("Sorry, I don't have a document about %s. Available topics are: %s.", input, strings.Join(keys, ", "))
		},
	})
}

// Documents returns the Contoso seed corpus for the search index.
func Documents() []retrieval.Document {
	docs := make([]retrieval.Document, len(travelDocuments))
	for i, e := range travelDocuments {
		docs[i] = retrieval.Document{ID: fmt.Sprint(i + 1), Content: e.Value}
	}
	return docs
}

// NewRegistry returns a registry holding every travel tool.
func NewRegistry() *af.Registry {
	return af.MustRegistry(
		NewTemperatureTool(),
		NewTravelDocumentTool(),
		NewBookFlightTool(),
		NewRandomDestinationTool(nil),
	)
}
