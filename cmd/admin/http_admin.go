package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	getAndPrint(*baseURL, "/admin/v1/state", nil)
}

func sessionsCmd(args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	getAndPrint(*baseURL, "/admin/v1/sessions", nil)
}

func ledgerCmd(args []string) {
	fs := flag.NewFlagSet("ledger", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	playerID := fs.Int("player_id", 0, "player id (required)")
	limit := fs.Int("limit", 50, "result limit")
	_ = fs.Parse(args)

	if *playerID <= 0 {
		fmt.Fprintln(os.Stderr, "missing -player_id")
		os.Exit(2)
	}
	getAndPrint(*baseURL, "/admin/v1/ledger", url.Values{
		"player_id": {strconv.Itoa(*playerID)},
		"limit":     {strconv.Itoa(*limit)},
	})
}

func getAndPrint(baseURL, path string, q url.Values) {
	status, body, err := adminGet(&http.Client{Timeout: 5 * time.Second}, baseURL, path, q)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	fmt.Println(strings.TrimSpace(string(body)))
	if status/100 != 2 {
		os.Exit(1)
	}
}

func adminGet(cl *http.Client, baseURL, path string, q url.Values) (int, []byte, error) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	resp, err := cl.Get(u)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}
