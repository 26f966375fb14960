// Command wsprobe opens many live viewers against a running board, drives
// votes over HTTP and checks that every viewer saw the same event sequence.
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
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks the probe results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	EventsReceived       int64
	VotesSent            int64
	Errors               int64
}

var metrics Metrics

type event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// viewer records the ordered event log of one connection.
type viewer struct {
	mu  sync.Mutex
	log []string
}

func (v *viewer) add(ev event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.log = append(v.log, ev.Type+" "+string(ev.Payload))
}

func (v *viewer) snapshot() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.log...)
}

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	viewers := flag.Int("viewers", 20, "Number of concurrent viewers")
	voters := flag.Int("voters", 10, "Number of distinct voters to simulate")
	settle := flag.Duration("settle", 2*time.Second, "Time to wait for events after the last vote")
	flag.Parse()

	log.Printf("Starting live probe against %s with %d viewers", *host, *viewers)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	stopChan := make(chan struct{})
	var wg sync.WaitGroup
	logs := make([]*viewer, *viewers)
	for i := range logs {
		logs[i] = &viewer{}
		wg.Add(1)
		go runViewer(*host, logs[i], stopChan, &wg)
		time.Sleep(10 * time.Millisecond)
	}

	go func() {
		<-interrupt
		log.Println("Interrupted by user")
		close(stopChan)
	}()

	time.Sleep(500 * time.Millisecond)
	if err := driveVotes(*host, *voters); err != nil {
		log.Printf("vote driver: %v", err)
		atomic.AddInt64(&metrics.Errors, 1)
	}

	select {
	case <-time.After(*settle):
		close(stopChan)
	case <-stopChan:
	}
	wg.Wait()

	printMetrics()
	if !sameSequence(logs) {
		log.Fatal("viewers observed different event sequences")
	}
	log.Println("all viewers observed the same event sequence")
}

func runViewer(host string, v *viewer, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws"}
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()
	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	if err := c.WriteMessage(websocket.TextMessage, []byte(`{"type":"join-comments"}`)); err != nil {
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}

	go func() {
		<-stopChan
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.SetReadDeadline(time.Now())
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		var ev event
		if err := json.Unmarshal(data, &ev); err != nil {
			atomic.AddInt64(&metrics.Errors, 1)
			continue
		}
		atomic.AddInt64(&metrics.EventsReceived, 1)
		if strings.HasPrefix(ev.Type, "comment:") {
			v.add(ev)
		}
	}
}

// driveVotes creates one comment and has every voter like it concurrently,
// then has two voters dislike it so it is removed.
func driveVotes(host string, voters int) error {
	id, err := createComment(host)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := vote(host, id, "like", fmt.Sprintf("10.77.0.%d", i+1)); err != nil {
				atomic.AddInt64(&metrics.Errors, 1)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		if err := vote(host, id, "dislike", fmt.Sprintf("10.78.0.%d", i+1)); err != nil {
			return err
		}
	}
	return nil
}

func createComment(host string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": "wsprobe", "content": "Live probe comment"})
	resp, err := http.Post(fmt.Sprintf("http://%s/api/comments", host), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create comment failed with status %d", resp.StatusCode)
	}
	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Data.ID, nil
}

func vote(host, id, kind, voterIP string) error {
	req, _ := http.NewRequest(http.MethodPost, fmt.Sprintf("http://%s/api/comments/%s/%s", host, id, kind), nil)
	req.Header.Set("X-Forwarded-For", voterIP)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s failed with status %d", kind, resp.StatusCode)
	}
	atomic.AddInt64(&metrics.VotesSent, 1)
	return nil
}

func sameSequence(logs []*viewer) bool {
	var reference []string
	for i, v := range logs {
		seq := v.snapshot()
		if i == 0 {
			reference = seq
			continue
		}
		if len(seq) != len(reference) {
			return false
		}
		for j := range seq {
			if seq[j] != reference[j] {
				return false
			}
		}
	}
	return true
}

func printMetrics() {
	log.Println("Probe Results")
	log.Println("=============")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Events Received: %d", atomic.LoadInt64(&metrics.EventsReceived))
	log.Printf("Votes Sent: %d", atomic.LoadInt64(&metrics.VotesSent))
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
