package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"moviehub/internal/auth"
	"moviehub/pkg/utils"
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func userPath(userID int64, suffix string) string {
	return "/v1/users/" + strconv.FormatInt(userID, 10) + suffix
}

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as the operator and save the bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}
			var resp struct {
				Token string `json:"token"`
			}
			payload := map[string]string{"username": username, "password": password}
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/auth/login", payload, &resp); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := saveToken(opts.TokenPath, resp.Token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged in")
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "operator username")
	cmd.Flags().StringVar(&password, "password", "", "operator password")
	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := clearToken(opts.TokenPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

// newTokenCommand mints a bearer token from the server's own config. The
// transport adapter authenticates with a long-lived transport token.
func newTokenCommand(opts *rootOptions) *cobra.Command {
	var role, subject string
	var ttl time.Duration
	var save bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a transport or operator token using the configured JWT secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !auth.ValidRole(role) {
				return fmt.Errorf("%w: %q", auth.ErrUnknownRole, role)
			}
			cfg, err := utils.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ts := auth.TokenService{
				Secret:   []byte(cfg.Auth.JWTSecret),
				Issuer:   cfg.Auth.JWTIssuer,
				Duration: ttl,
			}
			tok, exp, err := ts.Sign(subject, role)
			if err != nil {
				return err
			}
			if save {
				if err := saveToken(opts.TokenPath, tok); err != nil {
					return fmt.Errorf("save token: %w", err)
				}
			}
			out := map[string]any{"token": tok, "role": role}
			if !exp.IsZero() {
				out["expires_at"] = exp.UTC().Format(time.RFC3339)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&role, "role", auth.RoleTransport, "token role (transport|operator)")
	cmd.Flags().StringVar(&subject, "subject", "transport", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, 0 for no expiry")
	cmd.Flags().BoolVar(&save, "save", false, "also save as the CLI bearer token")
	return cmd
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for auth.operator_password_hash",
		Long:  "Print a bcrypt hash for auth.operator_password_hash. Reads the password from stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("empty password")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newCatalogCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect or extend the movie catalog",
	}

	var title, ref string
	add := &cobra.Command{
		Use:   "add",
		Short: "Ingest one movie",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp map[string]any
			payload := map[string]string{"title": title, "content_ref": ref}
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/v1/catalog", payload, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	add.Flags().StringVar(&title, "title", "", "movie title")
	add.Flags().StringVar(&ref, "ref", "", "content reference in the source group")

	var q string
	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			qv := url.Values{}
			if q != "" {
				qv.Set("q", q)
			}
			qv.Set("limit", strconv.Itoa(limit))
			qv.Set("offset", strconv.Itoa(offset))
			var resp map[string]any
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/v1/catalog?"+qv.Encode(), nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	list.Flags().StringVar(&q, "q", "", "title substring")
	list.Flags().IntVar(&limit, "limit", 20, "page size")
	list.Flags().IntVar(&offset, "offset", 0, "offset")

	cmd.AddCommand(add, list)
	return cmd
}

func newQueryCommand(opts *rootOptions) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Resolve a movie request on behalf of a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]any
			payload := map[string]string{"text": strings.Join(args, " ")}
			if err := opts.client().do(cmd.Context(), http.MethodPost, userPath(userID, "/queries"), payload, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "requesting user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newRetractCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retract <token>",
		Short: "Retract a delivered movie by its delivery token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]any
			if err := opts.client().do(cmd.Context(), http.MethodDelete, "/v1/deliveries/"+url.PathEscape(args[0]), nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func newSuggestCommand(opts *rootOptions) *cobra.Command {
	var userID int64
	var name string
	cmd := &cobra.Command{
		Use:   "suggest <text>",
		Short: "Forward a user's suggestion to the operators",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]any
			payload := map[string]string{"text": strings.Join(args, " "), "name": name}
			if err := opts.client().do(cmd.Context(), http.MethodPost, userPath(userID, "/suggestions"), payload, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "suggesting user id")
	cmd.Flags().StringVar(&name, "name", "", "display name of the user")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newTopCommand(opts *rootOptions) *cobra.Command {
	var userID int64
	var n int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the most requested movies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := userPath(userID, "/stats")
			if n > 0 {
				path += "?n=" + strconv.Itoa(n)
			}
			var resp map[string]any
			if err := opts.client().do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id the stats are requested as")
	cmd.Flags().IntVar(&n, "n", 0, "number of entries, 0 for the server default")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newRecommendCommand(opts *rootOptions) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Show popular movies the user has not requested yet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp map[string]any
			if err := opts.client().do(cmd.Context(), http.MethodGet, userPath(userID, "/recommendations"), nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newMissingCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "missing",
		Short: "List the most searched titles missing from the catalog (operator)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp map[string]any
			path := "/v1/admin/missing?limit=" + strconv.Itoa(limit)
			if err := opts.client().do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of titles")
	return cmd
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream operator events over the websocket feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := readToken(opts.TokenPath)
			if err != nil {
				return fmt.Errorf("token not found, run login first: %w", err)
			}
			wsURL, err := websocketURL(opts.BaseURL, "/events/ws")
			if err != nil {
				return err
			}
			return runWebSocket(cmd.Context(), wsURL, token, cmd.OutOrStdout())
		},
	}
}

func runWebSocket(ctx context.Context, wsURL, token string, out io.Writer) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		fmt.Fprintln(out, string(msg))
	}
}

