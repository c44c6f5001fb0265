package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"moviehub/internal/logging"
)

type tokenData struct {
	Token string `json:"token"`
}

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP event feed address")
	tokenFile := flag.String("token-file", defaultTokenPath(), "operator token saved by `moviehub login`")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	token := os.Getenv("MOVIEHUB_TOKEN")
	if token == "" {
		t, err := readToken(*tokenFile)
		if err != nil {
			logging.Warn().Err(err).Msg("no operator token; connecting without one")
		}
		token = t
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for {
		err := run(ctx, *addr, token, *pretty, os.Stdout)
		if ctx.Err() != nil {
			return
		}
		logging.Warn().Err(err).Str("addr", *addr).Msg("feed disconnected, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// run sends the token line the server expects, then prints events until the
// connection drops.
func run(ctx context.Context, addr, token string, pretty bool, out io.Writer) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	if token != "" {
		if _, err := fmt.Fprintln(conn, token); err != nil {
			return fmt.Errorf("send token: %w", err)
		}
	}
	logging.Info().Str("addr", addr).Msg("connected to event feed")

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		fmt.Fprintln(out, formatLine(sc.Bytes(), pretty))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func formatLine(line []byte, pretty bool) string {
	if !pretty {
		return string(line)
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		return string(line)
	}
	b, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return string(line)
	}
	return string(b)
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.moviehub-token.json"
	}
	return filepath.Join(home, ".moviehub", "token.json")
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}
