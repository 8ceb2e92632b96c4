// Package main runs E2E scenarios against a running waitlist API.
//
// Scenarios cover:
//   - Happy-path application (four steps, one submission, confirmation)
//   - Validation rejections per input kind
//   - Back navigation keeping answers
//   - Countdown snapshot and live stream
//
// Point WAITLIST_ENDPOINT of the API at a sink you control; the happy path
// really submits.
//
// Usage:
//
//	API_BASE_URL=http://localhost:8080 go run scripts/e2e/run_e2e.go              # runs all
//	API_BASE_URL=http://localhost:8080 go run scripts/e2e/run_e2e.go happy-path   # runs one
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var apiBase string

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type sessionView struct {
	ID           string  `json:"id"`
	Phase        string  `json:"phase"`
	StepIndex    int     `json:"step_index"`
	StepCount    int     `json:"step_count"`
	Progress     float64 `json:"progress"`
	Value        string  `json:"value"`
	ButtonLabel  string  `json:"button_label"`
	Confirmation *struct {
		Title string `json:"title"`
	} `json:"confirmation"`
	Step struct {
		Key string `json:"key"`
	} `json:"step"`
}

func call(method, path string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, apiBase+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 500 {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}

func newSession(t *T) *sessionView {
	var view sessionView
	code, err := call(http.MethodPost, "/waitlist/sessions", nil, &view)
	if err != nil || code != http.StatusCreated {
		t.fatalf("create session: code=%d err=%v", code, err)
		return nil
	}
	return &view
}

func answer(id, key, value string) (int, error) {
	return call(http.MethodPut, "/waitlist/sessions/"+id+"/answers/"+key, map[string]string{"value": value}, nil)
}

func advance(id string) (int, sessionView, error) {
	var view sessionView
	code, err := call(http.MethodPost, "/waitlist/sessions/"+id+"/advance", nil, &view)
	return code, view, err
}

func closeSession(id string) {
	_, _ = call(http.MethodDelete, "/waitlist/sessions/"+id, nil, nil)
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func scenarioHappyPath(t *T) {
	s := newSession(t)
	if s == nil {
		return
	}
	defer closeSession(s.ID)

	steps := [][2]string{
		{"revenue_goal", "5000"},
		{"hurdle", "no budget"},
		{"ad_budget", "200"},
		{"email", "e2e+" + fmt.Sprint(time.Now().Unix()) + "@example.com"},
	}
	var last sessionView
	for i, st := range steps {
		if code, err := answer(s.ID, st[0], st[1]); err != nil || code != http.StatusOK {
			t.fatalf("answer %s: code=%d err=%v", st[0], code, err)
			return
		}
		code, view, err := advance(s.ID)
		if err != nil || code != http.StatusOK {
			t.fatalf("advance from step %d: code=%d err=%v", i, code, err)
			return
		}
		last = view
	}

	t.check("wizard reached success", last.Phase == "success")
	t.check("confirmation shown", last.Confirmation != nil && last.Confirmation.Title != "")

	code, _, _ := advance(s.ID)
	t.check("second advance after success conflicts", code == http.StatusConflict)
}

func scenarioValidation(t *T) {
	s := newSession(t)
	if s == nil {
		return
	}
	defer closeSession(s.ID)

	for _, bad := range []string{"", "-5", "abc"} {
		_, _ = answer(s.ID, "revenue_goal", bad)
		code, _, _ := advance(s.ID)
		t.check(fmt.Sprintf("revenue_goal %q rejected", bad), code == http.StatusUnprocessableEntity)
	}

	code, _ := answer(s.ID, "phone", "555")
	t.check("unknown field rejected", code == http.StatusBadRequest)

	_, _ = answer(s.ID, "revenue_goal", "0")
	code, view, _ := advance(s.ID)
	t.check("zero accepted", code == http.StatusOK && view.StepIndex == 1)
}

func scenarioBackNavigation(t *T) {
	s := newSession(t)
	if s == nil {
		return
	}
	defer closeSession(s.ID)

	_, _ = answer(s.ID, "revenue_goal", "7500")
	_, _, _ = advance(s.ID)

	var view sessionView
	code, err := call(http.MethodPost, "/waitlist/sessions/"+s.ID+"/back", nil, &view)
	t.check("back accepted", err == nil && code == http.StatusOK)
	t.check("answer kept", view.Value == "7500")
	t.check("first step label", view.ButtonLabel == "Next Step")
}

func scenarioCountdown(t *T) {
	var snap struct {
		RemainingMs int64  `json:"remaining_ms"`
		Display     string `json:"display"`
	}
	code, err := call(http.MethodGet, "/countdown", nil, &snap)
	t.check("countdown snapshot served", err == nil && code == http.StatusOK)
	t.check("display formatted", len(snap.Display) == 8 && strings.Count(snap.Display, ":") == 2)

	wsURL := "ws" + strings.TrimPrefix(apiBase, "http") + "/countdown/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.fatalf("dial stream: %v", err)
		return
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first, second struct {
		RemainingMs int64 `json:"remaining_ms"`
	}
	t.check("first frame", conn.ReadJSON(&first) == nil)
	t.check("second frame", conn.ReadJSON(&second) == nil)
	t.check("countdown never increases", second.RemainingMs <= first.RemainingMs)
}

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if apiBase == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL required")
		os.Exit(1)
	}

	scenarios := []scenario{
		{"happy-path", scenarioHappyPath},
		{"validation", scenarioValidation},
		{"back-navigation", scenarioBackNavigation},
		{"countdown", scenarioCountdown},
	}

	// Filter by name if argument provided
	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed := 0
	totalFailed := 0
	scenarioResults := make([]string, 0)

	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}

		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{name: s.Name}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed

		status := "✅"
		if t.failed > 0 {
			status = "❌"
		}
		scenarioResults = append(scenarioResults, fmt.Sprintf("  %s %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Println("SUMMARY")
	fmt.Printf("========================================\n")
	for _, r := range scenarioResults {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)

	if totalFailed > 0 {
		fmt.Println("\n❌ SOME TESTS FAILED")
		os.Exit(1)
	}
	fmt.Println("\n✅ ALL TESTS PASSED")
}
