// README: Bench cases for the intake API; includes HTTP, DB, Redis, Slack and load checks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"tripdesk/internal/modules/conversation"
	"tripdesk/internal/slack"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
	// chatUser is the user created by the chat case, reused by later checks.
	chatUser string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:      cfg,
		httpc:    &http.Client{Timeout: 90 * time.Second},
		chatUser: "bench" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "DB reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "SKIP", Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "Redis reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "SKIP", Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Migration: apply (optional)",
			Focus: "apply migration SQL",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: "SKIP", Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "schema present",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "SKIP", Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, t).Scan(&exists)
					if err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
					if !exists {
						return Result{Status: "FAIL", Note: "missing table " + t}
					}
				}
				return Result{Status: "PASS", Note: strings.Join(tables, ",")}
			},
		},
		httpCaseMethod("HTTP: health", http.MethodGet, base+"/health", nil, []int{200}, nil),
		{
			Name:  "HTTP: chat turn",
			Focus: "one turn returns a reply",
			Run: func(ctx context.Context, r *Runner) Result {
				start := time.Now()
				var out struct {
					Reply string `json:"reply"`
				}
				status, err := r.postJSON(ctx, base+"/api/chat", map[string]string{
					"user_id": r.chatUser,
					"message": "Necesito volar de CDMX a San Francisco del 10 al 15 de septiembre",
				}, &out)
				latency := time.Since(start)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusOK || out.Reply == "" {
					return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d reply=%q", status, out.Reply)}
				}
				return Result{Status: "PASS", Latency: latency}
			},
		},
		httpCase("HTTP: chat validation", base+"/api/chat", map[string]string{"user_id": "", "message": "hola"}, []int{400}, nil),
		{
			Name:  "HTTP: conversation slots",
			Focus: "chat turn filled origin and destination",
			Run: func(ctx context.Context, r *Runner) Result {
				var out struct {
					State   map[string]string `json:"state"`
					History []any             `json:"history"`
				}
				status, err := r.getJSON(ctx, base+"/api/conversations/"+r.chatUser, &out)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusOK {
					return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", status)}
				}
				if out.State["origin"] != "MEX" || out.State["destination"] != "SFO" {
					return Result{Status: "FAIL", Note: fmt.Sprintf("state=%v", out.State)}
				}
				return Result{Status: "PASS", Note: fmt.Sprintf("history=%d", len(out.History))}
			},
		},
		httpCaseMethod("HTTP: unknown conversation", http.MethodGet, base+"/api/conversations/nobody"+strconv.FormatInt(time.Now().UnixNano(), 10), nil, []int{404}, nil),
		{
			Name:  "HTTP: flight params from text",
			Focus: "extraction to google_flights params",
			Run: func(ctx context.Context, r *Runner) Result {
				var out struct {
					Params map[string]string `json:"params"`
				}
				status, err := r.postJSON(ctx, base+"/api/search/flights/params", map[string]string{
					"text": "vuelo sencillo de Los Angeles a Nueva York el 3 de octubre en Delta",
				}, &out)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusOK {
					return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", status)}
				}
				if out.Params["departure_id"] != "LAX" || out.Params["arrival_id"] != "NYC" || out.Params["type"] != "2" {
					return Result{Status: "FAIL", Note: fmt.Sprintf("params=%v", out.Params)}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Slack: url_verification",
			Focus: "signed challenge echo",
			Run: func(ctx context.Context, r *Runner) Result {
				body := []byte(`{"type":"url_verification","challenge":"bench-challenge"}`)
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, base+"/slack/events", strings.NewReader(string(body)))
				req.Header.Set("Content-Type", "application/json")
				if r.cfg.SigningSecret != "" {
					ts := strconv.FormatInt(time.Now().Unix(), 10)
					req.Header.Set("X-Slack-Request-Timestamp", ts)
					req.Header.Set("X-Slack-Signature", slack.Sign(r.cfg.SigningSecret, ts, body))
				}
				resp, err := r.httpc.Do(req)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				defer resp.Body.Close()
				if resp.StatusCode == http.StatusNotFound {
					return Result{Status: "PENDING", Note: "slack not configured on server"}
				}
				b, _ := io.ReadAll(resp.Body)
				if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), "bench-challenge") {
					return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d body=%s", resp.StatusCode, b)}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Concurrency: same-user turns serialize",
			Focus: "no lost history entries",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentTurns(ctx, r, base)
			},
		},
		{
			Name:  "DB: conversation row persisted",
			Focus: "postgres store wrote the chat user",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "SKIP", Note: "db not configured"}
				}
				var n int
				err := r.db.QueryRow(ctx, `SELECT jsonb_array_length(history) FROM conversations WHERE user_id = $1`, r.chatUser).Scan(&n)
				if err != nil {
					return Result{Status: "PENDING", Note: "no row; server may use another store"}
				}
				return Result{Status: "PASS", Note: fmt.Sprintf("history=%d", n)}
			},
		},
		manualCase("Slack: DM end to end", "DM the bot and check the reply lands in the same thread"),
		{
			Name:  "Perf: chat load",
			Focus: "throughput across users",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/api/chat", func(i int) any {
					return map[string]string{
						"user_id": fmt.Sprintf("%sp%d", r.chatUser, i),
						"message": "quiero ir a Tokio la próxima semana",
					}
				})
			},
		},
	}
}

func (r *Runner) postJSON(ctx context.Context, url string, body, out any) (int, error) {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	return r.do(req, out)
}

func (r *Runner) getJSON(ctx context.Context, url string, out any) (int, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	return r.do(req, out)
}

func (r *Runner) do(req *http.Request, out any) (int, error) {
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func httpCase(name, url string, body any, okStatuses, pendingStatuses []int) TestCase {
	return httpCaseMethod(name, http.MethodPost, url, body, okStatuses, pendingStatuses)
}

func httpCaseMethod(name, method, url string, body any, okStatuses, pendingStatuses []int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			var reader io.Reader
			if body != nil {
				b, _ := json.Marshal(body)
				reader = strings.NewReader(string(b))
			}
			req, _ := http.NewRequestWithContext(ctx, method, url, reader)
			req.Header.Set("Content-Type", "application/json")
			start := time.Now()
			resp, err := r.httpc.Do(req)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			latency := time.Since(start)

			if contains(okStatuses, resp.StatusCode) {
				return Result{Status: "PASS", Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			if contains(pendingStatuses, resp.StatusCode) {
				return Result{Status: "PENDING", Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
		},
	}
}

func manualCase(name, note string) TestCase {
	return TestCase{
		Name:  name,
		Focus: "Manual",
		Run: func(ctx context.Context, r *Runner) Result {
			return Result{Status: "SKIP", Note: note}
		},
	}
}

// concurrentTurns fires turns for one fresh user in parallel and checks the
// stored history holds every user and bot entry, up to the cap.
func concurrentTurns(ctx context.Context, r *Runner, base string) Result {
	user := r.chatUser + "c"
	n := r.cfg.Concurrency
	if n > conversation.MaxHistory/2 {
		n = conversation.MaxHistory / 2
	}

	wg := sync.WaitGroup{}
	failed := 0
	mu := sync.Mutex{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, err := r.postJSON(ctx, base+"/api/chat", map[string]string{
				"user_id": user,
				"message": fmt.Sprintf("mensaje %d", i),
			}, nil)
			if err != nil || status != http.StatusOK {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if failed > 0 {
		return Result{Status: "FAIL", Note: fmt.Sprintf("failed requests=%d", failed)}
	}

	var out struct {
		History []any `json:"history"`
	}
	if _, err := r.getJSON(ctx, base+"/api/conversations/"+user, &out); err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	// An apology turn stores only the user entry.
	if len(out.History) < n || len(out.History) > 2*n {
		return Result{Status: "FAIL", Note: fmt.Sprintf("history=%d turns=%d", len(out.History), n)}
	}
	return Result{Status: "PASS", Note: fmt.Sprintf("history=%d turns=%d", len(out.History), n)}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload func(i int) any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count int64
	var errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, _ := json.Marshal(payload(i))
			for time.Now().Before(end) {
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(b)))
				req.Header.Set("Content-Type", "application/json")
				resp, err := r.httpc.Do(req)
				if err != nil {
					mu.Lock()
					errCount++
					mu.Unlock()
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				mu.Lock()
				count++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: "FAIL", Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	cleaned := strings.Join(filtered, "\n")
	parts := strings.Split(cleaned, ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
