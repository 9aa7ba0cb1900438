package fetch

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the mirror has no archive for a job (not published yet,
// or before the symbol was listed).
var ErrNotFound = errors.New("archive not found")

const (
	retryWait    = 2 * time.Second
	retryMaxWait = 15 * time.Second
)

// Client downloads archives from the public data mirror.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

// NewClient creates a Client issuing at most rps requests per second across all workers.
// retries applies to transport errors, 429 and 5xx responses.
func NewClient(retries int, rps float64) *Client {
	hc := resty.New().
		SetTimeout(10 * time.Minute).
		SetRetryCount(retries).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := r.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// get performs a rate-limited GET and returns the unread body on 200.
func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	body := resp.RawBody()
	switch resp.StatusCode() {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		body.Close()
		return nil, fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode(), strings.TrimSpace(string(snippet)))
	}
}

// Download saves url to dest atomically and returns the byte count. With verify set the
// archive is checked against the mirror's url.CHECKSUM file (sha256).
func (c *Client) Download(ctx context.Context, url, dest string, verify bool) (int64, error) {
	var want string
	if verify {
		sum, err := c.checksum(ctx, url)
		if err != nil {
			return 0, err
		}
		want = sum
	}

	body, err := c.get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, err
	}
	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return n, fmt.Errorf("save %s: %w", dest, err)
	}
	if got := hex.EncodeToString(h.Sum(nil)); want != "" && !strings.EqualFold(got, want) {
		os.Remove(tmp)
		return n, fmt.Errorf("checksum mismatch for %s: got %s, want %s", filepath.Base(dest), got, want)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return n, err
	}
	return n, nil
}

// checksum reads "<sha256>  <file name>" from url.CHECKSUM.
func (c *Client) checksum(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url+".CHECKSUM")
	if err != nil {
		return "", err
	}
	defer body.Close()
	line, err := bufio.NewReader(io.LimitReader(body, 1024)).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read checksum: %w", err)
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty checksum file for %s", url)
	}
	return fields[0], nil
}
