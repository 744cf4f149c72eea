package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/internal/models"
)

// retryDelays is the fixed 1s/2s/4s backoff sequence spec.md §4.4 names
// (1000 × 2^(i-1) ms for i = 1..3, three retries after the initial try).
var retryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Executor is the HTTP Invoker: a pure pipeline with no state attached to
// the Job between calls to Execute.
type Executor struct {
	client *http.Client
}

// NewExecutor creates a new Executor. The per-attempt timeout is taken
// from job.RequestTimeout, not from client.
func NewExecutor(client *http.Client) *Executor {
	if client == nil {
		client = &http.Client{}
	}
	return &Executor{client: client}
}

// fixedSequence is a backoff.BackOff that yields exactly retryDelays, in
// order, then reports backoff.Stop.
type fixedSequence struct {
	delays []time.Duration
	idx    int
}

func (f *fixedSequence) NextBackOff() time.Duration {
	if f.idx >= len(f.delays) {
		return backoff.Stop
	}
	d := f.delays[f.idx]
	f.idx++
	return d
}

func (f *fixedSequence) Reset() { f.idx = 0 }

// attemptOutcome carries one HTTP attempt's raw result through the retry
// loop to the final ExecutionLog construction.
type attemptOutcome struct {
	statusCode int
	body       []byte
	err        error
	retryable  bool
}

// Execute runs job's configured HTTP request, retrying per §4.4's policy,
// and returns exactly one ExecutionLog describing the terminal outcome.
func (e *Executor) Execute(ctx context.Context, job models.Job, triggeredManually bool, start time.Time) models.ExecutionLog {
	timeout := time.Duration(job.RequestTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(models.DefaultRequestTimeoutMS) * time.Millisecond
	}

	var last attemptOutcome
	attempts := 0

	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		attempts++
		last = e.attempt(attemptCtx, job)
		if last.err == nil {
			return nil
		}
		if !last.retryable {
			return backoff.Permanent(last.err)
		}
		return last.err
	}

	bo := &fixedSequence{delays: retryDelays}
	_ = backoff.Retry(op, backoff.WithContext(bo, ctx))

	// retryCount counts retries, not the initial attempt: 1 attempt with
	// no retries is retries=0, four attempts (one initial + three
	// retries exhausted) is retries=3, per spec.md §4.4.
	retries := attempts - 1
	if retries < 0 {
		retries = 0
	}

	return e.buildLog(job, triggeredManually, start, last, retries)
}

// attempt issues a single HTTP request/response round trip.
func (e *Executor) attempt(ctx context.Context, job models.Job) attemptOutcome {
	req, err := e.buildRequest(ctx, job)
	if err != nil {
		return attemptOutcome{err: err, retryable: false}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return attemptOutcome{err: err, retryable: isRetryableNetError(err)}
	}
	defer resp.Body.Close()

	// Read one byte past the cap so truncateBody can tell a body that was
	// cut short from one that fits exactly, and append TruncationSuffix.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, models.MaxResponseBodyBytes+1))

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return attemptOutcome{
			statusCode: resp.StatusCode,
			body:       body,
			err:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			retryable:  true,
		}
	}
	if resp.StatusCode >= 400 {
		return attemptOutcome{
			statusCode: resp.StatusCode,
			body:       body,
			err:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			retryable:  false,
		}
	}

	return attemptOutcome{statusCode: resp.StatusCode, body: body}
}

// buildRequest builds the outbound HTTP request from a Job, following
// spec.md §4.4 steps 1-2: headers are parsed as a JSON object (an empty
// or invalid literal yields no extra headers), and a POST body is sent as
// its raw text either way; only the Content-Type reflects whether the
// body is valid JSON.
func (e *Executor) buildRequest(ctx context.Context, job models.Job) (*http.Request, error) {
	var bodyReader io.Reader
	bodyIsJSON := false
	if job.Method == models.MethodPOST && job.Body != "" {
		bodyReader = strings.NewReader(job.Body)
		bodyIsJSON = json.Valid([]byte(job.Body))
	}

	req, err := http.NewRequestWithContext(ctx, string(job.Method), job.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("User-Agent", "httpscheduler/1.0")
	req.Header.Set("X-Scheduler-Job-ID", job.ID.String())

	if bodyIsJSON {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range models.ParsedHeaders(job.Headers) {
		req.Header.Set(key, value)
	}

	return req, nil
}

// buildLog assembles the terminal ExecutionLog per spec.md §4.4's Result
// construction, including the error-message taxonomy.
func (e *Executor) buildLog(job models.Job, triggeredManually bool, start time.Time, last attemptOutcome, retries int) models.ExecutionLog {
	entry := models.ExecutionLog{
		ID:                uuid.New(),
		JobID:             job.ID,
		ExecutedAt:        start,
		ExecutionTime:     time.Since(start).Milliseconds(),
		TriggeredManually: triggeredManually,
	}

	if last.err == nil {
		entry.Status = models.ExecutionStatusSuccess
		code := last.statusCode
		entry.ResponseCode = &code
		entry.ResponseBody = truncateBody(last.body)
		return entry
	}

	entry.Status = models.ExecutionStatusFailed
	if last.statusCode != 0 {
		code := last.statusCode
		entry.ResponseCode = &code
	}
	entry.RetryCount = retries
	entry.ErrorMessage = formatError(last)
	return entry
}

func truncateBody(body []byte) string {
	text := string(body)
	if len(text) <= models.MaxResponseBodyBytes {
		return text
	}
	return text[:models.MaxResponseBodyBytes] + models.TruncationSuffix
}

func formatError(o attemptOutcome) string {
	if o.statusCode != 0 {
		msg := fmt.Sprintf("HTTP %d: %s", o.statusCode, http.StatusText(o.statusCode))
		if len(o.body) > 0 {
			msg += " - " + truncateBody(o.body)
		}
		return msg
	}

	msg := fmt.Sprintf("Network error: %s", classifyNetError(o.err))
	if o.err != nil {
		msg += " - " + o.err.Error()
	}
	return msg
}

// isRetryableNetError reports whether err is a connection-level failure
// spec.md §4.4 names as retryable (refused, reset, DNS failure, timeout).
func isRetryableNetError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// classifyNetError produces the "<code>" segment of the "Network error:
// <code>[ - <message>]" taxonomy.
func classifyNetError(err error) string {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET"
	case isTimeout(err):
		return "ETIMEDOUT"
	default:
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return "EAI_NODATA"
		}
		return "UNKNOWN"
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
