package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/messages"
)

// Command is a client message built from one line of user input.
type Command struct {
	Type    messages.MessageType
	Payload interface{}
}

// ErrLocal is returned for input that is handled by the client itself.
var ErrLocal = errors.New("local command")

const Usage = `commands:
  create [rounds]                 create a game (operator)
  start | end                     start or end the game (operator)
  advance <fromRound>             advance from the given round (operator)
  tariff <round> <from> <product>:<to>:<rate> ...
  say <text>                      send to everyone
  tell <country> <text>           send privately to a country
  country                         ask for a country
  state                           print the local game state`

// Parse turns one line of input into a Command.
func Parse(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	switch fields[0] {
	case "create":
		update := &messages.ClientGameStateUpdate{Action: messages.GameActionCreate}
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("invalid number of rounds %q", fields[1])
			}
			update.TotalRounds = n
		}
		return &Command{Type: messages.MessageTypeClientGameStateUpdate, Payload: update}, nil

	case "start", "end":
		return &Command{
			Type:    messages.MessageTypeClientGameStateUpdate,
			Payload: &messages.ClientGameStateUpdate{Action: messages.GameAction(fields[0])},
		}, nil

	case "advance":
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: advance <fromRound>")
		}
		round, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("invalid round %q", fields[1])
		}
		return &Command{
			Type:    messages.MessageTypeClientGameStateUpdate,
			Payload: &messages.ClientGameStateUpdate{Action: messages.GameActionAdvance, FromRound: round},
		}, nil

	case "tariff":
		return parseTariff(fields[1:])

	case "say":
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "say"))
		return &Command{
			Type:    messages.MessageTypeClientSendMessage,
			Payload: &messages.ClientSendMessage{Content: text, MessageType: types.ChatMessageTypeGroup},
		}, nil

	case "tell":
		if len(fields) < 3 {
			return nil, fmt.Errorf("usage: tell <country> <text>")
		}
		text := strings.Join(fields[2:], " ")
		return &Command{
			Type: messages.MessageTypeClientSendMessage,
			Payload: &messages.ClientSendMessage{
				Content:          text,
				MessageType:      types.ChatMessageTypePrivate,
				RecipientCountry: types.Country(fields[1]),
			},
		}, nil

	case "country":
		return &Command{
			Type:    messages.MessageTypeRequestCountryAssignment,
			Payload: &messages.ClientCountryAssignment{},
		}, nil

	case "state", "help":
		return nil, ErrLocal

	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseTariff(args []string) (*Command, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("usage: tariff <round> <from> <product>:<to>:<rate> ...")
	}
	round, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid round %q", args[0])
	}

	update := &messages.ClientTariffUpdate{
		Round:       round,
		FromCountry: types.Country(args[1]),
	}
	for _, arg := range args[2:] {
		parts := strings.Split(arg, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid tariff %q, want product:country:rate", arg)
		}
		rate, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate %q", parts[2])
		}
		update.Changes = append(update.Changes, types.TariffChange{
			Product:   types.Product(parts[0]),
			ToCountry: types.Country(parts[1]),
			Rate:      rate,
		})
	}
	return &Command{Type: messages.MessageTypeClientTariffUpdate, Payload: update}, nil
}
