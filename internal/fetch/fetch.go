package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"linkprobe/internal/config"
)

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status code: %s", e.Status)
}

type Client struct {
	client  *http.Client
	config  *config.Config
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          cfg.Concurrency,
		MaxIdleConnsPerHost:   cfg.Concurrency,
		IdleConnTimeout:       90 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		},
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		client:  client,
		config:  cfg,
		limiter: limiter,
		logger:  logger,
	}
}

// Fetch GETs urlStr and returns the body as UTF-8 text. Any non-2xx status
// is a *StatusError.
func (c *Client) Fetch(ctx context.Context, urlStr string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", c.config.AcceptLanguage)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("timeout or canceled: %w", err)
		}
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &StatusError{URL: urlStr, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	// one extra byte tells "exactly at the cap" from "over it"
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodySize+1))
	if err != nil {
		if len(body) == 0 {
			return "", fmt.Errorf("read body: %w", err)
		}
		c.logger.WithFields(logrus.Fields{
			"url":   urlStr,
			"error": err.Error(),
			"bytes": len(body),
		}).Warn("partial read")
	}
	if int64(len(body)) > c.config.MaxBodySize {
		return "", fmt.Errorf("body too large: more than %d bytes", c.config.MaxBodySize)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(strings.ToLower(contentType), "xml") {
		// xml declares its own encoding in the prolog
		return string(body), nil
	}

	_, name, _ := charset.DetermineEncoding(body, contentType)
	utf8Body, err := convertToUTF8(body, name)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"url":     urlStr,
			"charset": name,
			"error":   err.Error(),
		}).Warn("encoding conversion failed")
		utf8Body = body
	}
	return string(utf8Body), nil
}

func convertToUTF8(body []byte, charsetName string) ([]byte, error) {
	charsetName = strings.ToLower(strings.TrimSpace(charsetName))

	if charsetName == "" || charsetName == "utf-8" || charsetName == "utf8" {
		return body, nil
	}

	enc, err := htmlindex.Get(charsetName)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", charsetName, err)
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", charsetName, err)
	}
	return decoded, nil
}
