package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// Result 记录单个会话的下单结果，便于聚合统计。
type Result struct {
	Status  int
	Text    string
	OrderID int64
	Err     error
}

// 与服务端默认 intent 名保持一致
const (
	intentAdd      = "4. AddOrder - context: ongoing-order"
	intentComplete = "6. CompleteOrder - context: ongoing-order"
)

var orderIDPattern = regexp.MustCompile(`order id # (\d+)`)

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	path := flag.String("path", "/", "webhook path")
	item := flag.String("item", "Pizza", "food item to order")

	// 并发完成订单测试：每个会话加一次菜再完成，订单号必须两两不同
	nSessions := flag.Int("sessions", 200, "distinct sessions")
	concurrency := flag.Int("c", 50, "max concurrency")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}
	url := *baseURL + *path

	fmt.Printf("start order id test: sessions=%d concurrency=%d\n", *nSessions, *concurrency)
	results := runSessions(client, url, *item, *nSessions, *concurrency)
	printSummary("complete", results)

	if dup := duplicateIDs(results); len(dup) > 0 {
		fmt.Printf("DUPLICATE order ids: %v\n", dup)
		os.Exit(1)
	}
	fmt.Println("order ids unique")

	// 同一会话并发加菜：结果数量应等于请求数
	fmt.Println("\nstart same-session test: 50 concurrent adds")
	text := runSameSession(client, url, *item, 50, 50)
	fmt.Println("  last reply:", text)
}

func runSessions(client *http.Client, url, item string, nSessions, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, nSessions)

	for i := 0; i < nSessions; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			session := fmt.Sprintf("loadtest-%d-%d", time.Now().UnixNano(), idx)
			if r := post(client, url, webhook(intentAdd, session, []string{item}, []float64{1})); r.Err != nil || r.Status != http.StatusOK {
				results[idx] = r
				return
			}
			r := post(client, url, webhook(intentComplete, session, nil, nil))
			if m := orderIDPattern.FindStringSubmatch(r.Text); m != nil {
				r.OrderID, _ = strconv.ParseInt(m[1], 10, 64)
			}
			results[idx] = r
		}(i)
	}

	wg.Wait()
	return results
}

func runSameSession(client *http.Client, url, item string, total, concurrency int) string {
	session := fmt.Sprintf("loadtest-same-%d", time.Now().UnixNano())
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	last := ""

	for i := 0; i < total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			r := post(client, url, webhook(intentAdd, session, []string{item}, []float64{1}))
			mu.Lock()
			last = r.Text
			mu.Unlock()
		}()
	}
	wg.Wait()

	// 最后再加 1 份，摘要里的数量应为 total+1
	return post(client, url, webhook(intentAdd, session, []string{item}, []float64{1})).Text + " (prev: " + last + ")"
}

func webhook(intent, session string, items []string, quantities []float64) map[string]any {
	params := map[string]any{}
	if items != nil {
		params["FoodItem-AddOrder"] = items
		params["number"] = quantities
	}
	return map[string]any{
		"queryResult": map[string]any{
			"intent":     map[string]any{"displayName": intent},
			"parameters": params,
		},
		"outputContexts": []map[string]any{
			{"name": "projects/loadtest/agent/sessions/" + session + "/contexts/ongoing-order"},
		},
	}
}

func post(client *http.Client, url string, body any) Result {
	b, _ := json.Marshal(body)
	httpReq, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var out struct {
		FulfillmentText string `json:"fulfillmentText"`
	}
	_ = json.Unmarshal(raw, &out)
	return Result{Status: resp.StatusCode, Text: out.FulfillmentText}
}

func duplicateIDs(results []Result) []int64 {
	seen := map[int64]int{}
	var dup []int64
	for _, r := range results {
		if r.OrderID == 0 {
			continue
		}
		seen[r.OrderID]++
		if seen[r.OrderID] == 2 {
			dup = append(dup, r.OrderID)
		}
	}
	return dup
}

// printSummary 聚合输出不同状态码分布与成功下单数。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount, placed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
		if r.OrderID > 0 {
			placed++
		}
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 400, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
	fmt.Printf("  orders placed -> %d\n", placed)
}
