package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

var URL, _ = os.LookupEnv("API_URL")
var PORT, _ = os.LookupEnv("API_PORT")
var apiURL = fmt.Sprintf("http://%s:%s/v1", URL, PORT)
var webhooksURL = apiURL + "/webhooks/transactions"
var transactionsURL = apiURL + "/transactions"

const (
	workers       = 10
	duration      = 30 * time.Second
	duplicateRate = 0.2
)

var currencies = []string{"USD", "EUR", "GBP"}

type webhook struct {
	TransactionID      string `json:"transaction_id"`
	SourceAccount      string `json:"source_account"`
	DestinationAccount string `json:"destination_account"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
}

func main() {
	var wg sync.WaitGroup
	wg.Add(workers)

	var mu sync.Mutex
	var sent []string

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			start := time.Now()
			for time.Since(start) < duration {
				mu.Lock()
				payload := createWebhook(sent)
				sent = append(sent, payload.TransactionID)
				mu.Unlock()

				status, err := sendWebhook(payload)
				if err != nil {
					fmt.Println("Error sending webhook:", err)
				} else {
					fmt.Printf("Webhook sent: %s status=%d\n", payload.TransactionID, status)
				}

				time.Sleep(time.Duration(rand.Intn(1000)) * time.Millisecond)
			}
		}()
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	printStatuses(sent)
}

func sendWebhook(payload webhook) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, webhooksURL, bytes.NewBuffer(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return resp.StatusCode, fmt.Errorf("wrong status code: %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// createWebhook produces a fresh transaction most of the time, and resends
// an already used id at duplicateRate to exercise dedup.
func createWebhook(sent []string) webhook {
	transactionID := uuid.New().String()
	if len(sent) > 0 && rand.Float64() < duplicateRate {
		transactionID = sent[rand.Intn(len(sent))]
	}

	amount := rand.Float64()*1000 + 1

	return webhook{
		TransactionID:      transactionID,
		SourceAccount:      fmt.Sprintf("ACC%03d", rand.Intn(1000)),
		DestinationAccount: fmt.Sprintf("ACC%03d", rand.Intn(1000)),
		Amount:             fmt.Sprintf("%.2f", amount),
		Currency:           currencies[rand.Intn(len(currencies))],
	}
}

func printStatuses(ids []string) {
	counts := make(map[string]int)
	for _, id := range ids {
		resp, err := http.Get(transactionsURL + "/" + id)
		if err != nil {
			fmt.Println("Error getting transaction:", err)
			continue
		}

		var record struct {
			Status string `json:"status"`
		}
		err = json.NewDecoder(resp.Body).Decode(&record)
		resp.Body.Close()
		if err != nil {
			fmt.Println("Error decoding transaction:", err)
			continue
		}
		counts[record.Status]++
	}

	fmt.Println("Final statuses:")
	for status, n := range counts {
		fmt.Printf("  %s: %d\n", status, n)
	}
}
