package main

import (
	"fmt"
	"os"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: admin <command> [flags]

commands (live server, loopback admin http):
  state      tick, world metrics, players, hub counters
  sessions   live client sessions
  ledger     a player's recent credit changes (-player_id)

commands (offline, sqlite index):
  db [meta|players|ticks|commands|ledger|sessions]`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "state":
		stateCmd(os.Args[2:])
	case "sessions":
		sessionsCmd(os.Args[2:])
	case "ledger":
		ledgerCmd(os.Args[2:])
	case "db":
		dbCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}
