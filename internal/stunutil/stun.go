package stunutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/pion/stun/v3"
	"github.com/sirupsen/logrus"

	"dzlatency/internal/addrutil"
)

// Unknown is reported when no source yields an address.
const Unknown = "unknown"

// Resolver finds the host's public IP. STUN servers are asked in order; the
// HTTP echo service is only consulted when none of them answers.
type Resolver struct {
	Servers     []string
	Timeout     time.Duration
	FallbackURL string
	HTTPClient  *http.Client
	Log         logrus.FieldLogger

	// query is swapped out in tests.
	query func(ctx context.Context, server string, timeout time.Duration) (string, error)
}

func NewResolver(servers []string, timeout time.Duration, fallbackURL string, log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{
		Servers:     servers,
		Timeout:     timeout,
		FallbackURL: fallbackURL,
		HTTPClient:  &http.Client{Timeout: timeout},
		Log:         log,
		query:       bindingAddress,
	}
}

// PublicIP returns the public address or Unknown. It never fails.
func (r *Resolver) PublicIP(ctx context.Context) string {
	ip, err := r.viaSTUN(ctx)
	if err == nil {
		return ip
	}
	r.Log.WithError(err).Debug("stun lookup failed")
	if r.FallbackURL == "" {
		return Unknown
	}
	ip, err = r.viaHTTP(ctx)
	if err != nil {
		r.Log.WithError(err).Debug("http ip lookup failed")
		return Unknown
	}
	return ip
}

func (r *Resolver) viaSTUN(ctx context.Context) (string, error) {
	if len(r.Servers) == 0 {
		return "", errors.New("no STUN servers provided")
	}
	query := r.query
	if query == nil {
		query = bindingAddress
	}

	var lastErr error
	for _, server := range r.Servers {
		mapped, err := query(ctx, server, r.Timeout)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", server, err)
			continue
		}
		host := addrutil.Host(mapped)
		if _, err := netip.ParseAddr(host); err != nil {
			lastErr = fmt.Errorf("%s: bad mapped address %q", server, mapped)
			continue
		}
		return host, nil
	}
	return "", lastErr
}

func (r *Resolver) viaHTTP(ctx context.Context) (string, error) {
	client := r.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: r.Timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.FallbackURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "curl/8")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: status %d", r.FallbackURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if _, err := netip.ParseAddr(ip); err != nil {
		return "", fmt.Errorf("%s: unexpected body %q", r.FallbackURL, ip)
	}
	return ip, nil
}

// bindingAddress asks server for this host's reflexive address. The whole
// exchange, dial included, is bounded by timeout.
func bindingAddress(ctx context.Context, server string, timeout time.Duration) (string, error) {
	target := strings.TrimSpace(server)
	if target == "" {
		return "", errors.New("empty STUN server")
	}
	if !strings.HasPrefix(target, "stun:") {
		target = "stun:" + target
	}
	uri, err := stun.ParseURI(target)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", target, err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	client, err := stun.DialURI(uri, &stun.DialConfig{})
	if err != nil {
		return "", err
	}
	defer client.Close()

	type answer struct {
		addr string
		err  error
	}
	// Buffered for the callback and Do's own error, so neither blocks after we return.
	done := make(chan answer, 2)
	go func() {
		err := client.Do(stun.MustBuild(stun.TransactionID, stun.BindingRequest), func(ev stun.Event) {
			if ev.Error != nil {
				done <- answer{err: ev.Error}
				return
			}
			var mapped stun.XORMappedAddress
			if err := mapped.GetFrom(ev.Message); err != nil {
				done <- answer{err: fmt.Errorf("binding response: %w", err)}
				return
			}
			done <- answer{addr: mapped.String()}
		})
		if err != nil {
			done <- answer{err: err}
		}
	}()

	select {
	case a := <-done:
		return a.addr, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
