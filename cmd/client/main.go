package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	authproviders "github.com/cbodonnell/econempire/pkg/auth/providers"
	"github.com/cbodonnell/econempire/pkg/client/commands"
	"github.com/cbodonnell/econempire/pkg/client/network"
	"github.com/cbodonnell/econempire/pkg/client/state"
	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/log"
	"github.com/cbodonnell/econempire/pkg/messages"
	"github.com/cbodonnell/econempire/pkg/version"
)

func main() {
	serverURL := flag.String("server", network.DefaultServerURL, "WebSocket URL of the game server")
	token := flag.String("token", "", "ID token to log in with")
	jwtSecret := flag.String("jwt-secret", "", "issue a token locally with this secret instead of -token")
	jwtIssuer := flag.String("jwt-issuer", "econempire", "issuer of locally issued tokens")
	name := flag.String("name", "player", "player ID and name for locally issued tokens")
	role := flag.String("role", string(types.RolePlayer), "role for locally issued tokens")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	logger := log.New(os.Stderr, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Starting client version %s", version.Get())

	if *jwtSecret != "" {
		issuer := authproviders.NewJWTAuthProvider(*jwtSecret, *jwtIssuer)
		*token, err = issuer.IssueToken(types.Identity{
			PlayerID: *name,
			Name:     *name,
			Role:     types.Role(*role),
		}, 24*time.Hour)
		if err != nil {
			panic(fmt.Sprintf("Failed to issue token: %v", err))
		}
	}
	if *token == "" {
		fmt.Fprintln(os.Stderr, "one of -token or -jwt-secret is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	networkManager := network.NewNetworkManager(network.NewNetworkManagerOptions{
		ServerURL: *serverURL,
		Token:     *token,
		OnStateChange: func(s network.ConnectionState) {
			fmt.Printf("* %s\n", s)
		},
	})

	done := make(chan error, 1)
	go func() { done <- networkManager.Start(ctx) }()
	go printEvents(networkManager.Events())
	go readCommands(ctx, networkManager)

	if err := <-done; err != nil {
		fmt.Fprintf(os.Stderr, "disconnected: %v\n", err)
		os.Exit(1)
	}
}

func readCommands(ctx context.Context, networkManager *network.NetworkManager) {
	fmt.Println(commands.Usage)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd, err := commands.Parse(scanner.Text())
		if errors.Is(err, commands.ErrLocal) {
			printState(networkManager.Projection().View())
			continue
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		requestID, err := networkManager.Send(ctx, cmd.Type, cmd.Payload)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Printf("> %s %s\n", cmd.Type, requestID)
	}
}

func printEvents(events <-chan *messages.Message) {
	for msg := range events {
		switch msg.Type {
		case messages.MessageTypeServerAck:
			ack := &messages.ServerAck{}
			if err := messages.DecodePayload(msg, ack); err != nil {
				continue
			}
			if ack.OK {
				fmt.Printf("< ok %s\n", msg.RequestID)
			} else if ack.Error != nil {
				fmt.Printf("< error %s %s: %s\n", msg.RequestID, ack.Error.Code, ack.Error.Message)
			}
		case messages.MessageTypeServerRoundTimer:
			// too chatty to print
		default:
			fmt.Printf("< %s %s\n", msg.Type, string(msg.Payload))
		}
	}
}

func printState(v state.View) {
	if v.GameID == "" {
		fmt.Println("no game")
	} else {
		fmt.Printf("game %s: %s, round %d of %d, %ds left\n", v.GameID, v.Status, v.CurrentRound, v.TotalRounds, v.TimeRemaining)
	}
	for _, p := range v.Production {
		fmt.Printf("  produces %s %s %d\n", p.Country, p.Product, p.Quantity)
	}
	for _, d := range v.Demand {
		fmt.Printf("  demands  %s %s %d\n", d.Country, d.Product, d.Quantity)
	}
	for _, r := range v.TariffRates {
		fmt.Printf("  tariff r%d %s %s->%s %.2f (#%d)\n", r.Round, r.Product, r.FromCountry, r.ToCountry, r.Rate, r.Sequence)
	}
	for _, u := range v.Users {
		fmt.Printf("  online %s (%s) %s\n", u.Name, u.Role, u.Country)
	}
}
