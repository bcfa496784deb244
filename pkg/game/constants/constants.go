package constants

import "time"

const (
	// RoundDuration is the length of one round, reset on every round transition
	RoundDuration = 900 * time.Second
	// RoundDurationSeconds is RoundDuration expressed in whole seconds
	RoundDurationSeconds int = int(RoundDuration / time.Second)
	// DefaultTotalRounds is the number of rounds used when the operator does not pick one
	DefaultTotalRounds int = 5
	// MaxTotalRounds caps the number of rounds an operator may configure
	MaxTotalRounds int = 50

	// ProductTotal is the quantity each product's production (and demand) sums to
	ProductTotal int = 100
	// MinProducers is the lowest number of countries producing a single product
	MinProducers int = 2
	// MaxProducers is the highest number of countries producing a single product
	MaxProducers int = 3

	// MaxChatMessageLength is the longest chat message accepted, in bytes
	MaxChatMessageLength int = 1000
	// MaxTariffChangesPerSubmission caps the changes accepted in one tariff submission
	MaxTariffChangesPerSubmission int = 100
)
