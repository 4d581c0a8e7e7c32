package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// End-to-end smoke flow against a running instance: signup, login,
// inventory read, one purchase record, asset create and delete.
func main() {
	base := os.Getenv("MILSTOCK_ADDR")
	if base == "" {
		base = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 5 * time.Second}
	email := fmt.Sprintf("smoke-%d@milstock.org", rand.Int())

	var signup struct {
		Token string `json:"token"`
	}
	post(client, base+"/api/auth/signup", "", map[string]any{
		"email":  email,
		"secret": "smoke-secret",
	}, http.StatusCreated, &signup)

	var login struct {
		Token string `json:"token"`
	}
	post(client, base+"/api/auth/login", "", map[string]any{
		"email":  email,
		"secret": "smoke-secret",
	}, http.StatusOK, &login)
	token := login.Token

	var snapshots []map[string]any
	get(client, base+"/api/assets/inventory", token, &snapshots)
	if len(snapshots) == 0 {
		log.Fatal("inventory is empty")
	}

	var recorded struct {
		Data map[string]any `json:"data"`
	}
	post(client, base+"/api/assets/purchase", token, map[string]any{
		"base":           "base-alpha",
		"equipment_type": "rifle",
		"item":           "rifle",
		"qty":            10,
	}, http.StatusCreated, &recorded)
	if id, _ := recorded.Data["id"].(string); id == "" {
		log.Fatal("purchase record missing id")
	}

	var asset struct {
		ID string `json:"id"`
	}
	post(client, base+"/api/assets", token, map[string]any{
		"name":     "smoke truck",
		"type":     "vehicle",
		"status":   "operational",
		"location": "base-alpha",
	}, http.StatusCreated, &asset)
	if asset.ID == "" {
		log.Fatal("asset missing id")
	}

	req, err := http.NewRequest(http.MethodDelete, base+"/api/assets/"+asset.ID, nil)
	if err != nil {
		log.Fatalf("delete request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("delete asset: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("delete asset: status %d", resp.StatusCode)
	}

	fmt.Printf("smoke test passed: user=%s asset=%s\n", email, asset.ID)
}

func post(client *http.Client, url, token string, body map[string]any, want int, out any) {
	raw, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("marshal %s: %v", url, err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		log.Fatalf("request %s: %v", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	do(client, req, want, out)
}

func get(client *http.Client, url, token string, out any) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		log.Fatalf("request %s: %v", url, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	do(client, req, http.StatusOK, out)
}

func do(client *http.Client, req *http.Request, want int, out any) {
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("%s %s: read body: %v", req.Method, req.URL, err)
	}
	if resp.StatusCode != want {
		log.Fatalf("%s %s: status %d, body %s", req.Method, req.URL, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			log.Fatalf("%s %s: decode: %v", req.Method, req.URL, err)
		}
	}
}
