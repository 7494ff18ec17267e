package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jackpotchain/core/types"
)

// apiClient talks to the jackpotd HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type apiError struct {
	Status  int
	Kind    string
	Message string
}

func (e *apiError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (http %d): %s", e.Kind, e.Status, e.Message)
}

func (c *apiClient) do(method, path string, body interface{}, auth bool, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if c.token == "" {
			return fmt.Errorf("admin token required; set %s or pass --token", adminTokenEnv)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var envelope struct {
			Error struct {
				Kind    string `json:"kind"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
			return &apiError{Status: resp.StatusCode, Kind: envelope.Error.Kind, Message: envelope.Error.Message}
		}
		return &apiError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

type roundInfo struct {
	ID                         uint64 `json:"id"`
	Phase                      string `json:"phase"`
	Deadline                   int64  `json:"deadline"`
	LastBidder                 string `json:"lastBidder"`
	BidCount                   uint64 `json:"bidCount"`
	CurrentPrice               string `json:"currentPrice"`
	Pot                        string `json:"pot"`
	CharityAmount              string `json:"charityAmount"`
	TimeUntilWithdrawalSeconds int64  `json:"timeUntilWithdrawalSeconds"`
}

type accountInfo struct {
	Address       string `json:"address"`
	Nonce         uint64 `json:"nonce"`
	Balance       string `json:"balance"`
	RewardBalance string `json:"rewardBalance"`
}

type receiptInfo struct {
	ID     string         `json:"id"`
	TxHash string         `json:"txHash"`
	Type   string         `json:"type"`
	Events []*types.Event `json:"events"`
}

func (c *apiClient) chainID() (string, error) {
	var health struct {
		ChainID string `json:"chainId"`
	}
	if err := c.do(http.MethodGet, "/healthz", nil, false, &health); err != nil {
		return "", err
	}
	if health.ChainID == "" {
		return "", fmt.Errorf("node did not report a chain id")
	}
	return health.ChainID, nil
}

func (c *apiClient) round() (*roundInfo, error) {
	var out roundInfo
	if err := c.do(http.MethodGet, "/v1/round", nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) account(addr string) (*accountInfo, error) {
	var out accountInfo
	if err := c.do(http.MethodGet, "/v1/accounts/"+addr, nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) submit(tx *types.Transaction) (*receiptInfo, error) {
	path, auth := "/v1/tx", false
	if tx.Type.Admin() {
		path, auth = "/admin/v1/tx", true
	}
	var out receiptInfo
	if err := c.do(http.MethodPost, path, tx, auth, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
