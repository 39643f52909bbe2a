// Sends one signed event to a running webhook server. Useful for local
// end-to-end checks without a messaging provider.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"commerce-chat-bot/internal/webhook"
)

func main() {
	var (
		url      = flag.String("url", "http://localhost:8090/webhook/shop", "webhook endpoint")
		secret   = flag.String("secret", "", "HMAC signing secret (webhook.secret)")
		customer = flag.String("customer", "15550000000", "customer id")
		text     = flag.String("text", "", "message text")
		reply    = flag.String("reply", "", "structured reply id (button tap)")
		eventID  = flag.String("event", "", "event id; random when empty")
	)
	flag.Parse()

	if *secret == "" {
		log.Fatal("-secret is required")
	}
	if *text == "" && *reply == "" {
		log.Fatal("one of -text or -reply is required")
	}
	id := *eventID
	if id == "" {
		id = uuid.NewString()
	}

	body, err := json.Marshal(map[string]string{
		"event_id":    id,
		"customer_id": *customer,
		"text":        *text,
		"reply_id":    *reply,
	})
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.SignatureHeader, webhook.NewVerifier(*secret, 0).Sign(body))

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("send: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("event %s -> %s: %s\n", id, resp.Status, bytes.TrimSpace(out))
}
