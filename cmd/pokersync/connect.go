package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/cardtable/pokersync/internal/chat"
	"github.com/cardtable/pokersync/internal/client"
	"github.com/cardtable/pokersync/internal/codec"
	"github.com/cardtable/pokersync/internal/config"
	"github.com/cardtable/pokersync/internal/game"
	"github.com/cardtable/pokersync/internal/session"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newConnectCmd(load func() (config.Config, error)) *cobra.Command {
	var sessionID, token, player string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Join a session and follow it; type commands on stdin",
		Long: `Join a session and follow it. Commands read from stdin:
  seat N | start | bet N | raise N | call | check | pass | say TEXT | typing | idle | exit | quit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if player == "" {
				player = token
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := chat.NewLog()
			typing := chat.NewTypingSet()
			store := session.NewStore()
			evicted := make(chan error, 1)

			mgr := client.New(client.Config{
				URL:          cfg.Server.URL,
				MaxRetries:   cfg.Connection.MaxRetries,
				RetryBackoff: cfg.Connection.RetryBackoff,
				DialTimeout:  cfg.Connection.DialTimeout,
				WriteTimeout: cfg.Connection.WriteTimeout,
			}, client.Hooks{
				OnStatus: func(connected bool) {
					if connected {
						pterm.Success.Println("connected")
					} else {
						pterm.Warning.Println("disconnected")
					}
				},
				OnEvent: func(event codec.Event) {
					printEvent(event, log, typing, store, game.PlayerID(player))
				},
				OnEvict: func(err error) {
					evicted <- err
				},
			}, log, typing, store)
			commands := client.NewCommands(mgr)

			mgr.Connect(sessionID, token)
			defer mgr.Close()

			lines := make(chan string)
			go scanLines(cmd.InOrStdin(), lines)

			for {
				select {
				case <-ctx.Done():
					return nil
				case err := <-evicted:
					pterm.Error.Printfln("left session %s: %v", sessionID, err)
					return err
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					quit, err := runLine(commands, line)
					if errors.Is(err, client.ErrNotConnected) {
						pterm.Warning.Println("not connected, command dropped")
					} else if err != nil {
						pterm.Error.Println(err)
					}
					if quit {
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	cmd.Flags().StringVar(&token, "token", "", "bearer token")
	cmd.Flags().StringVar(&player, "player", "", "your player id, used to compute allowed commands (default: token)")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func scanLines(r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out <- line
		}
	}
}

// runLine executes one stdin command. It reports whether the user asked to quit.
func runLine(c *client.Commands, line string) (quit bool, err error) {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	amount := func() (int, error) {
		var n int
		if _, err := fmt.Sscanf(arg, "%d", &n); err != nil {
			return 0, fmt.Errorf("%s needs a number, got %q", verb, arg)
		}
		return n, nil
	}

	switch strings.ToLower(verb) {
	case "quit":
		return true, nil
	case "exit":
		return true, c.Exit()
	case "start":
		return false, c.Start()
	case "call":
		return false, c.Call()
	case "check":
		return false, c.Check()
	case "pass", "fold":
		return false, c.Pass()
	case "typing":
		return false, c.TypingStart()
	case "idle":
		return false, c.TypingEnd()
	case "say":
		if arg == "" {
			return false, errors.New("say needs a message")
		}
		return false, c.SendMessage(arg)
	case "seat":
		n, err := amount()
		if err != nil {
			return false, err
		}
		return false, c.TakeSeat(n)
	case "bet":
		n, err := amount()
		if err != nil {
			return false, err
		}
		return false, c.Bet(n)
	case "raise":
		n, err := amount()
		if err != nil {
			return false, err
		}
		return false, c.Raise(n)
	}
	return false, fmt.Errorf("unknown command %q", verb)
}

func printEvent(event codec.Event, log *chat.Log, typing *chat.TypingSet, store *session.Store, viewer game.PlayerID) {
	switch event.(type) {
	case *codec.ChatHistoryEvent:
		for _, e := range log.Entries() {
			printChat(e)
		}
	case *codec.ChatIncomingEvent:
		entries := log.Entries()
		if len(entries) > 0 {
			printChat(entries[len(entries)-1])
		}
	case *codec.TypingEvent:
		if ids := typing.Members(); len(ids) > 0 {
			pterm.Info.Printfln("typing: %v", ids)
		}
	case *codec.GameStateEvent:
		state := store.State()
		if state == nil {
			return
		}
		pterm.Info.Println(state.String())
		if line := winnersLine(state); line != "" {
			pterm.Success.Println(line)
		}
		if len(state.Board.Cards) > 0 {
			pterm.Info.Printfln("board: %s", state.Board)
		}
		if p := state.Player(viewer); p != nil && len(p.Hand.Cards) > 0 {
			pterm.Info.Printfln("hand: %s", p.Hand)
		}
		allowed := session.AllowedCommands(state, viewer)
		verbs := make([]string, 0, len(allowed))
		for t := range allowed {
			verbs = append(verbs, string(t))
		}
		slices.Sort(verbs)
		pterm.Info.Printfln("you may: %s", strings.Join(verbs, ", "))
	}
}

// winnersLine names the winners of a finished round, or returns "".
func winnersLine(state *game.Snapshot) string {
	winners := state.WinnerPlayers()
	if len(winners) == 0 {
		return ""
	}
	names := make([]string, len(winners))
	for i, p := range winners {
		names[i] = fmt.Sprintf("%s (%g)", p.Name, p.Balance)
	}
	return "winners: " + strings.Join(names, ", ")
}

func printChat(e game.ChatEntry) {
	pterm.Printfln("[%s] %s: %s", e.DisplayTime, e.Username, e.Text)
}
