package loki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chiwei-platform/executor-k8s/internal/port"
)

var _ port.LogQuerier = (*Client)(nil)

// Client 通过 Loki HTTP API 查询 Pod 已被清理的构建日志。
type Client struct {
	baseURL    string
	httpClient *http.Client
	limit      int
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limit: 5000,
	}
}

// QueryBuildLogs 查询 build 容器的日志。Job 以 buildID 命名，
// 其 Pod 名称形如 <buildID>-xxxxx。
func (c *Client) QueryBuildLogs(ctx context.Context, namespace, buildID string, start, end time.Time) (string, error) {
	podPattern := regexp.QuoteMeta(buildID) + "-.*"
	query := fmt.Sprintf(`{namespace=%q, pod=~%q, container="build"}`, namespace, podPattern)

	params := url.Values{
		"query":     {query},
		"start":     {strconv.FormatInt(start.UnixNano(), 10)},
		"end":       {strconv.FormatInt(end.UnixNano(), 10)},
		"direction": {"forward"},
		"limit":     {strconv.Itoa(c.limit)},
	}

	reqURL := c.baseURL + "/loki/api/v1/query_range?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("loki: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("loki: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("loki: unexpected status %d", resp.StatusCode)
	}

	var result queryRangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("loki: decode response: %w", err)
	}
	if result.Status != "success" {
		return "", fmt.Errorf("loki: query status %q", result.Status)
	}

	return joinLines(result.Data), nil
}

type queryRangeResponse struct {
	Status string         `json:"status"`
	Data   queryRangeData `json:"data"`
}

type queryRangeData struct {
	ResultType string   `json:"resultType"`
	Result     []stream `json:"result"`
}

type stream struct {
	Values [][]string `json:"values"` // [[timestamp_ns, line], ...]
}

type logLine struct {
	ts   int64
	text string
}

// joinLines 合并所有 stream 的日志行，按纳秒时间戳排序；时间戳相同保持原顺序。
func joinLines(data queryRangeData) string {
	var lines []logLine
	for _, s := range data.Result {
		for _, v := range s.Values {
			if len(v) < 2 {
				continue
			}
			ts, err := strconv.ParseInt(v[0], 10, 64)
			if err != nil {
				continue
			}
			lines = append(lines, logLine{ts: ts, text: v[1]})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].ts < lines[j].ts
	})

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.text)
		b.WriteByte('\n')
	}
	return b.String()
}
