package game

import (
	"math/rand"
	"strings"
)

var (
	nameAdjectives = []string{
		"electronic", "automatic", "binary", "numeric", "mechanic",
		"robotic", "programmed", "mechanized", "electric",
	}
	nameFirstNames = []string{
		"Eddie", "Frank", "Sam", "James", "Bill", "George", "Jack", "Bob",
		"Joe", "Jane", "Jill", "Anne", "Fred", "Hank", "Maria",
	}
)

// autonomousName picks a name like "Robotic Jane".
func autonomousName(rng *rand.Rand) string {
	adj := nameAdjectives[rng.Intn(len(nameAdjectives))]
	name := nameFirstNames[rng.Intn(len(nameFirstNames))]
	return strings.ToUpper(adj[:1]) + adj[1:] + " " + name
}
