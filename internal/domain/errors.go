package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")

	ErrMalformedLocator  = fmt.Errorf("%w: malformed scm url", ErrInvalidInput)
	ErrTemplateParse     = errors.New("manifest template parse error")
	ErrCircuitOpen       = errors.New("circuit breaker is open")
	ErrPodLookup         = errors.New("failed to look up pod")
	ErrPodNotFound       = fmt.Errorf("pod %w", ErrNotFound)
	ErrExecutionNotFound = fmt.Errorf("execution history %w", ErrNotFound)
)

// StatusError 表示平台返回了非预期的 HTTP 状态码，Body 为原始响应体。
type StatusError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Failed to %s job: %s", e.Op, e.body())
}

// body 把响应体序列化为紧凑 JSON；非 JSON 内容按字符串序列化。
func (e *StatusError) body() string {
	if len(e.Body) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, e.Body); err != nil {
		quoted, _ := json.Marshal(string(e.Body))
		return string(quoted)
	}
	return buf.String()
}
