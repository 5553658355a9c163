package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: admin <command> [flags]

commands:
  state        dump admission policy, region safety, and grant counts
  login-level  set or reset the minimum login level
  welcome      set the grid welcome message`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "state":
		stateCmd(os.Args[2:])
	case "login-level":
		loginLevelCmd(os.Args[2:])
	case "welcome":
		welcomeCmd(os.Args[2:])
	default:
		usage()
	}
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8002", "logind base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/state"
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func loginLevelCmd(args []string) {
	fs := flag.NewFlagSet("login-level", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8002", "logind base url")
	level := fs.Int("level", 0, "minimum access level required to log in")
	reset := fs.Bool("reset", false, "reset the minimum login level to unrestricted")
	_ = fs.Parse(args)

	body := fmt.Sprintf(`{"level":%d,"reset":%t}`, *level, *reset)
	postJSON(*baseURL, "/admin/v1/login-level", body)
}

func welcomeCmd(args []string) {
	fs := flag.NewFlagSet("welcome", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8002", "logind base url")
	message := fs.String("message", "", "welcome message text")
	_ = fs.Parse(args)

	b, _ := json.Marshal(map[string]string{"message": *message})
	postJSON(*baseURL, "/admin/v1/welcome", string(b))
}

func postJSON(baseURL, path, body string) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	req, _ := http.NewRequest(http.MethodPost, u, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
