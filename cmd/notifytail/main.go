// Command notifytail logs in, opens the realtime websocket and prints every
// event it receives. It is a manual check for notification and chat delivery.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unitoku/internal/notifications"

	"github.com/gorilla/websocket"
)

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	email := flag.String("email", "", "Account email (ignored when -token is set)")
	password := flag.String("password", "", "Account password")
	token := flag.String("token", os.Getenv("UNITOKU_TOKEN"), "Bearer token")
	secure := flag.Bool("tls", false, "Use https/wss")
	flag.Parse()

	httpScheme, wsScheme := "http", "ws"
	if *secure {
		httpScheme, wsScheme = "https", "wss"
	}
	base := fmt.Sprintf("%s://%s", httpScheme, *host)
	client := &http.Client{Timeout: 10 * time.Second}

	if *token == "" {
		t, err := login(client, base, *email, *password)
		if err != nil {
			log.Fatalf("❌ Login failed: %v", err)
		}
		*token = t
		log.Printf("✅ Logged in as %s", *email)
	}

	ticket, err := getTicket(client, base, *token)
	if err != nil {
		log.Fatalf("❌ Ticket issuance failed: %v", err)
	}

	u := url.URL{Scheme: wsScheme, Host: *host, Path: "/api/ws", RawQuery: "ticket=" + url.QueryEscape(ticket)}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		log.Fatalf("❌ Dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()
	log.Printf("🔌 Connected to %s", u.Redacted())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("read: %v", err)
				}
				return
			}
			printEvent(data)
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func printEvent(data []byte) {
	var ev notifications.Event
	if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
		log.Printf("raw: %s", data)
		return
	}
	payload, _ := json.MarshalIndent(ev.Payload, "", "  ")
	log.Printf("[%s] %s", ev.Type, payload)
}

func login(client *http.Client, base, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(base+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}

func getTicket(client *http.Client, base, token string) (string, error) {
	req, err := http.NewRequest(http.MethodPost, base+"/api/ws/ticket", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ticket issuance failed with status %d", resp.StatusCode)
	}
	var result struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Ticket, nil
}
