package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

type startResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
	Poll    string `json:"poll"`
	Error   string `json:"error"`
}

type jobResponse struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Duration string         `json:"duration"`
	Result   map[string]any `json:"result"`
	Error    string         `json:"error"`
}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "API base URL")
	adminSecretFlag := flag.String("admin-secret", "", "Admin secret (or use ADMIN_SECRET env)")
	force := flag.Bool("force", false, "Re-enrich calls that already have deadlines")
	batchSize := flag.Int("batch-size", 200, "Batch size")
	pollSec := flag.Int("poll-sec", 5, "Poll interval in seconds")
	timeoutSec := flag.Int("timeout-sec", 120, "HTTP timeout in seconds")
	flag.Parse()

	secret := *adminSecretFlag
	if secret == "" {
		secret = os.Getenv("ADMIN_SECRET")
	}
	if secret == "" {
		log.Fatal("admin secret required: pass -admin-secret or set ADMIN_SECRET")
	}

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	startURL := fmt.Sprintf("%s/api/v1/admin/enrich?force=%t&batch_size=%d", *baseURL, *force, *batchSize)
	req, err := http.NewRequest(http.MethodPost, startURL, nil)
	if err != nil {
		log.Fatal(err)
	}
	req.Header.Set("X-Admin-Secret", secret)

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Start request failed: %v", err)
	}
	var start startResponse
	if err := json.NewDecoder(resp.Body).Decode(&start); err != nil {
		resp.Body.Close()
		log.Fatalf("Decode failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("Start failed (%d): %s", resp.StatusCode, start.Error)
	}
	log.Printf("Job %s started", start.JobID)

	pollURL := fmt.Sprintf("%s/api/v1/admin/job/%s", *baseURL, start.JobID)
	for {
		time.Sleep(time.Duration(*pollSec) * time.Second)

		req, err := http.NewRequest(http.MethodGet, pollURL, nil)
		if err != nil {
			log.Fatal(err)
		}
		req.Header.Set("X-Admin-Secret", secret)

		resp, err := client.Do(req)
		if err != nil {
			log.Printf("Poll failed: %v", err)
			continue
		}
		var job jobResponse
		if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
			resp.Body.Close()
			log.Printf("Poll decode failed: %v", err)
			continue
		}
		resp.Body.Close()

		switch job.Status {
		case "completed":
			log.Printf("Completed in %s: %v", job.Duration, job.Result)
			return
		case "failed":
			log.Fatalf("Job failed: %s", job.Error)
		default:
			log.Printf("Status: %s", job.Status)
		}
	}
}
