package runner

import (
	"fmt"
	"math/rand"
)

// Word lists for generated run names. Unnamed executions still need a
// stable handle in reports and logs.
var (
	adjectives = []string{
		"amber", "bold", "brisk", "calm", "clever", "crimson", "daring",
		"eager", "fleet", "gentle", "golden", "keen", "lively", "lucid",
		"mellow", "nimble", "polar", "quiet", "rapid", "silver", "steady",
		"sunny", "swift", "vivid", "wandering", "witty",
	}
	places = []string{
		"atoll", "bay", "bluff", "canyon", "cape", "cove", "delta",
		"dune", "fjord", "glacier", "grove", "harbor", "island", "lagoon",
		"meadow", "mesa", "oasis", "plateau", "reef", "ridge", "river",
		"summit", "tundra", "valley",
	}
)

// GenerateName produces an adjective-place name for an unnamed execution.
func GenerateName() string {
	return fmt.Sprintf("%s-%s",
		adjectives[rand.Intn(len(adjectives))],
		places[rand.Intn(len(places))])
}
