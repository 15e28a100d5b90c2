// Copyright 2026 The trip-planner Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiBaseURL() string {
	if u := os.Getenv("TRIP_API_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func newClient() *resty.Client {
	return resty.New().
		SetBaseURL(apiBaseURL()).
		SetTimeout(120 * time.Second).
		SetHeader("Content-Type", "application/json")
}

type planResponse struct {
	SessionID     string   `json:"session_id"`
	Status        string   `json:"status"`
	Output        string   `json:"output"`
	SlotsComplete bool     `json:"is_slots_complete"`
	MissingSlots  []string `json:"missing_slots"`
}

func postPlan(sessionID, userInput string) (*planResponse, error) {
	body := map[string]string{"user_input": userInput}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	var out planResponse
	resp, err := newClient().R().
		SetBody(body).
		SetResult(&out).
		Post("/api/plan")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("POST /api/plan: %s", resp.String())
	}
	return &out, nil
}

func getSession(sessionID string) (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := newClient().R().
		SetResult(&out).
		Get("/api/sessions/" + sessionID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/sessions/%s: %s", sessionID, resp.String())
	}
	return out, nil
}

func getHistory(sessionID string, limit int) (map[string]interface{}, error) {
	req := newClient().R()
	if limit > 0 {
		req.SetQueryParam("limit", fmt.Sprintf("%d", limit))
	}
	var out map[string]interface{}
	resp, err := req.
		SetResult(&out).
		Get("/api/sessions/" + sessionID + "/history")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET history: %s", resp.String())
	}
	return out, nil
}

func deleteSession(sessionID string) (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := newClient().R().
		SetResult(&out).
		Delete("/api/sessions/" + sessionID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("DELETE /api/sessions/%s: %s", sessionID, resp.String())
	}
	return out, nil
}

func getSystemStatus() (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := newClient().R().
		SetResult(&out).
		Get("/api/system/status")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/system/status: %s", resp.String())
	}
	return out, nil
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
