// Package main runs a demo WebSocket client for the live alert feed.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Subscribe to the alert feed first so nothing is missed.
	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("localhost:%s", port), Path: "/v1/alerts/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	go func() {
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("event %s: %s", msg.Type, string(msg.Payload))
		}
	}()

	// Send a report far from the demo home zone during curfew hours to
	// provoke alerts (requires DEMO_SEED=true on the server).
	report := map[string]any{
		"deviceId":     "dev-1",
		"lat":          40.7306,
		"lng":          -73.9866,
		"speedKmh":     130.0,
		"batteryLevel": 15.0,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}
	body, _ := json.Marshal(report)
	resp, err := http.Post(base+"/v1/locations", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("post report: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	log.Printf("ingest response (%d): %v", resp.StatusCode, out)

	// Wait for dispatched events to arrive.
	time.Sleep(3 * time.Second)
}
