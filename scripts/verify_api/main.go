// Smoke check for the REST surface of a running chat service: health,
// channel create, duplicate rejection, cross-garden reuse, listing, and
// message history. Exits non-zero on the first mismatch.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gardenly/chat-service/pkg/auth"
	"github.com/gardenly/chat-service/pkg/model"
)

func main() {
	apiAddr := os.Getenv("API_ADDR")
	if apiAddr == "" {
		apiAddr = "http://localhost:8082"
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev_secret_change_me"
	}

	verifier := auth.NewVerifier([]byte(secret))
	token, err := verifier.GenerateToken(model.Identity{ID: "smoke_user", Name: "Smoke", Color: "#888888"}, time.Hour)
	if err != nil {
		log.Fatal("token:", err)
	}

	// 1. Health check (public).
	resp := request("GET", apiAddr+"/healthz", "", nil)
	expect(resp, http.StatusOK, "healthz")

	// 2. Create a channel; the timestamped name keeps reruns independent.
	name := fmt.Sprintf("smoke-%d", time.Now().UnixNano())
	body, _ := json.Marshal(map[string]string{"name": name, "gardenId": "smoke-garden"})
	resp = request("POST", apiAddr+"/channel", token, body)
	expect(resp, http.StatusCreated, "create channel")

	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(resp.body, &created); err != nil || created.ID == "" {
		log.Fatalf("create channel: bad response %s", resp.body)
	}
	log.Printf("created channel %s (%s)", created.Name, created.ID)

	// 3. Same (garden, name) pair again must collide.
	resp = request("POST", apiAddr+"/channel", token, body)
	expect(resp, http.StatusConflict, "duplicate channel")

	// 4. Same name in another garden is fine.
	other, _ := json.Marshal(map[string]string{"name": name, "gardenId": "smoke-garden-2"})
	resp = request("POST", apiAddr+"/channel", token, other)
	expect(resp, http.StatusCreated, "channel in second garden")

	// 5. The listing contains the new channel.
	resp = request("GET", apiAddr+"/channel", token, nil)
	expect(resp, http.StatusOK, "list channels")
	if !bytes.Contains(resp.body, []byte(created.ID)) {
		log.Fatalf("list channels: %s missing from %s", created.ID, resp.body)
	}

	// 6. History for the new channel is empty but well-formed.
	resp = request("GET", apiAddr+"/messages?channel="+created.ID, token, nil)
	expect(resp, http.StatusOK, "channel history")

	// 7. No credential means no access.
	resp = request("GET", apiAddr+"/channel", "", nil)
	expect(resp, http.StatusUnauthorized, "unauthenticated list")

	log.Println("API verification passed")
}

type response struct {
	status int
	body   []byte
}

func request(method, url, token string, body []byte) response {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		log.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return response{status: resp.StatusCode, body: data}
}

func expect(resp response, status int, step string) {
	if resp.status != status {
		log.Fatalf("%s: got %d want %d (%s)", step, resp.status, status, resp.body)
	}
	log.Printf("%s: ok", step)
}
