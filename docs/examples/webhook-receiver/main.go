// ATTEC Notification Receiver Example
//
// A minimal endpoint for NOTIFY_WEBHOOK_URL. It verifies the signature,
// drops duplicate deliveries and logs what it would email.
//
// Usage:
//
//	export NOTIFY_WEBHOOK_SECRET="whsec_your_secret_here"
//	go run main.go
//
// Then start the API with NOTIFY_WEBHOOK_URL=http://your-server:9000/notify
package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const replayWindow = 5 * time.Minute

// Lead mirrors the lead fields of a "lead" notification.
type Lead struct {
	Name         string `json:"contact_name"`
	Email        string `json:"contact_email"`
	Company      string `json:"contact_company"`
	Message      string `json:"contact_message"`
	SubmissionID string `json:"submission_id"`
}

// Payload is the body the API posts.
type Payload struct {
	Type       string    `json:"type"` // "lead" or "auto_reply"
	DeliveryID string    `json:"delivery_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Subject    string    `json:"subject"`
	To         string    `json:"to,omitempty"`
	Lead       *Lead     `json:"lead,omitempty"`
	Name       string    `json:"contact_name,omitempty"`
}

func main() {
	secret := os.Getenv("NOTIFY_WEBHOOK_SECRET")
	if secret == "" {
		log.Fatal("NOTIFY_WEBHOOK_SECRET environment variable is required")
	}

	seen := &deliveries{ids: make(map[string]time.Time)}
	http.HandleFunc("/notify", notifyHandler(secret, seen))
	http.HandleFunc("/health", healthHandler)

	log.Println("Starting notification receiver on :9000")
	log.Fatal(http.ListenAndServe(":9000", nil))
}

// deliveries remembers delivery ids; retries reuse the id of the first attempt.
type deliveries struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func (d *deliveries) firstTime(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	for k, t := range d.ids {
		if now.Sub(t) > time.Hour {
			delete(d.ids, k)
		}
	}
	if _, ok := d.ids[id]; ok {
		return false
	}
	d.ids[id] = now
	return true
}

func notifyHandler(secret string, seen *deliveries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		ts, err := strconv.ParseInt(r.Header.Get("X-Attec-Timestamp"), 10, 64)
		if err != nil || !verify(secret, r.Header.Get("X-Attec-Signature"), ts, body) {
			log.Println("rejected delivery: bad signature or timestamp")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		var p Payload
		if err := json.Unmarshal(body, &p); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		if !seen.firstTime(p.DeliveryID) {
			log.Printf("duplicate delivery %s ignored", p.DeliveryID)
			w.WriteHeader(http.StatusOK)
			return
		}

		switch p.Type {
		case "lead":
			log.Printf("[lead] %s", p.Subject)
			if p.Lead != nil {
				log.Printf("  from:    %s <%s>", p.Lead.Name, p.Lead.Email)
				log.Printf("  company: %s", p.Lead.Company)
				log.Printf("  message: %s", p.Lead.Message)
			}
		case "auto_reply":
			log.Printf("[auto_reply] to %s <%s>: %s", p.Name, p.To, p.Subject)
		default:
			log.Printf("unknown notification type %q", p.Type)
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

// verify checks the hex HMAC-SHA256 of "{timestamp}.{body}".
func verify(secret, signature string, ts int64, body []byte) bool {
	if d := time.Since(time.Unix(ts, 0)); d > replayWindow || d < -replayWindow {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10) + "."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
